package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quoteportal/internal/model"
	"quoteportal/internal/repository"

	"gorm.io/gorm"
)

var ErrTemplateNotFound = errors.New("email template not found")

type UpsertEmailTemplateRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

type EmailTemplateService interface {
	List(ctx context.Context) ([]model.EmailTemplate, error)
	Get(ctx context.Context, templateType string) (*model.EmailTemplate, error)
	Upsert(ctx context.Context, actor model.Principal, templateType string, req UpsertEmailTemplateRequest) (*model.EmailTemplate, error)
	Render(ctx context.Context, n model.Notification) (model.Notification, error)
}

type emailTemplateService struct {
	repo      repository.EmailTemplateRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewEmailTemplateService(repo repository.EmailTemplateRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) EmailTemplateService {
	return &emailTemplateService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *emailTemplateService) List(ctx context.Context) ([]model.EmailTemplate, error) {
	tpls, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email templates: %w", err)
	}
	return tpls, nil
}

func (s *emailTemplateService) Get(ctx context.Context, templateType string) (*model.EmailTemplate, error) {
	if !model.ValidTemplateType(templateType) {
		return nil, ErrTemplateNotFound
	}
	tpl, err := s.repo.FindByType(ctx, templateType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to fetch email template: %w", err)
	}
	return tpl, nil
}

func (s *emailTemplateService) Upsert(ctx context.Context, actor model.Principal, templateType string, req UpsertEmailTemplateRequest) (*model.EmailTemplate, error) {
	verr := &ValidationError{}
	if !model.ValidTemplateType(templateType) {
		verr.add("type", "must be one of "+strings.Join(model.TemplateTypes, ", "))
	}
	if strings.TrimSpace(req.Subject) == "" {
		verr.add("subject", "is required")
	}
	if strings.TrimSpace(req.Body) == "" {
		verr.add("body", "is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	tpl := &model.EmailTemplate{
		Type:      templateType,
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		UpdatedBy: actor.ID,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Upsert(txCtx, tpl); err != nil {
			return fmt.Errorf("failed to save email template: %w", err)
		}
		details, _ := json.Marshal(map[string]interface{}{"subject": tpl.Subject})
		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Action:     model.ActionUpdateEmailTemplate,
			EntityID:   tpl.ID.String(),
			EntityName: tpl.Type,
			Details:    string(details),
		}); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// Render attaches the stored subject and body for n's template type. A missing
// template is not an error; the payload is returned unchanged.
func (s *emailTemplateService) Render(ctx context.Context, n model.Notification) (model.Notification, error) {
	tpl, err := s.Get(ctx, n.TemplateType)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return n, nil
		}
		return n, err
	}
	n.Subject, n.Body = tpl.Render(n.Variables)
	return n, nil
}
