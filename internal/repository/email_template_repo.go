package repository

import (
	"context"

	"quoteportal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmailTemplateRepository interface {
	List(ctx context.Context) ([]model.EmailTemplate, error)
	FindByType(ctx context.Context, templateType string) (*model.EmailTemplate, error)
	Upsert(ctx context.Context, tpl *model.EmailTemplate) error
}

type emailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) EmailTemplateRepository {
	return &emailTemplateRepository{db: db}
}

func (r *emailTemplateRepository) List(ctx context.Context) ([]model.EmailTemplate, error) {
	var tpls []model.EmailTemplate
	if err := GetDB(ctx, r.db).Order("type ASC").Find(&tpls).Error; err != nil {
		return nil, err
	}
	return tpls, nil
}

func (r *emailTemplateRepository) FindByType(ctx context.Context, templateType string) (*model.EmailTemplate, error) {
	var tpl model.EmailTemplate
	if err := GetDB(ctx, r.db).First(&tpl, "type = ?", templateType).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Upsert inserts the template or replaces subject/body of the existing row of the same type.
func (r *emailTemplateRepository) Upsert(ctx context.Context, tpl *model.EmailTemplate) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "body", "updated_by", "updated_at"}),
	}).Create(tpl).Error
}
