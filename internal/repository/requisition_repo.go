package repository

import (
	"context"
	"errors"

	"quoteportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleVersion is returned by Update when the stored version moved on.
var ErrStaleVersion = errors.New("stale requisition version")

type RequisitionRepository interface {
	Create(ctx context.Context, req *model.Requisition) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Requisition, error)
	ListVisible(ctx context.Context, p model.Principal) ([]model.Requisition, error)
	ListAwaitingHOD(ctx context.Context, department string) ([]model.Requisition, error)
	Update(ctx context.Context, req *model.Requisition, expectedVersion int) error
}

type requisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

// ScopeFor translates the role visibility rules into SQL predicates. It must
// select exactly the rows service.CanView accepts.
func ScopeFor(p model.Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch p.Role {
		case model.RoleEmployee:
			return db.Where("requested_by = ?", p.ID)
		case model.RoleHOD:
			if p.Department == "" {
				return db.Where("requested_by = ?", p.ID)
			}
			return db.Where("requested_by = ? OR (requested_by_role = ? AND requested_by_department = ?)",
				p.ID, model.RoleEmployee, p.Department)
		case model.RoleFinance:
			return db
		default:
			return db.Where("1 = 0")
		}
	}
}

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

func (r *requisitionRepository) Create(ctx context.Context, req *model.Requisition) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requisitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
	var req model.Requisition
	if err := GetDB(ctx, r.db).Preload("History", orderedHistory).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requisitionRepository) ListVisible(ctx context.Context, p model.Principal) ([]model.Requisition, error) {
	var reqs []model.Requisition
	if err := GetDB(ctx, r.db).
		Scopes(ScopeFor(p)).
		Preload("History", orderedHistory).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListAwaitingHOD returns submitted requisitions of department whose HOD stage is still pending.
func (r *requisitionRepository) ListAwaitingHOD(ctx context.Context, department string) ([]model.Requisition, error) {
	var reqs []model.Requisition
	if err := GetDB(ctx, r.db).
		Where("requested_by_department = ? AND hod_status = ? AND status = ?", department, model.StatusPending, model.SubmissionSubmitted).
		Preload("History", orderedHistory).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// Update writes the mutable columns guarded by expectedVersion and inserts
// history entries that have not been persisted yet. Existing history rows are
// never touched.
func (r *requisitionRepository) Update(ctx context.Context, req *model.Requisition, expectedVersion int) error {
	db := GetDB(ctx, r.db)

	res := db.Model(&model.Requisition{}).
		Where("id = ? AND version = ?", req.ID, expectedVersion).
		Updates(map[string]interface{}{
			"item":           req.Item,
			"amount":         req.Amount,
			"description":    req.Description,
			"comment":        req.Comment,
			"date":           req.Date,
			"urgency":        req.Urgency,
			"status":         req.Status,
			"hod_status":     req.HODStatus,
			"finance_status": req.FinanceStatus,
			"document_url":   req.DocumentURL,
			"document_name":  req.DocumentName,
			"document_type":  req.DocumentType,
			"version":        expectedVersion + 1,
			"updated_at":     req.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	req.Version = expectedVersion + 1

	for i := range req.History {
		if req.History[i].ID != uuid.Nil {
			continue
		}
		req.History[i].RequisitionID = req.ID
		if err := db.Create(&req.History[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
