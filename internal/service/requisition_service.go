package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quoteportal/internal/metrics"
	"quoteportal/internal/model"
	"quoteportal/internal/repository"
	"quoteportal/pkg/pagination"
	"quoteportal/pkg/txid"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRequisitionRequest struct {
	Item         string `json:"item" binding:"required"`
	Amount       string `json:"amount" binding:"required"` // Decimal string
	Description  string `json:"description"`
	Comment      string `json:"comment"`
	Date         string `json:"date"` // YYYY-MM-DD, defaults to today
	Urgency      string `json:"urgency"`
	Draft        bool   `json:"draft"`
	DocumentURL  string `json:"document_url"`
	DocumentName string `json:"document_name"`
	DocumentType string `json:"document_type"`
}

// UpdateRequisitionRequest edits content before the first approval action.
// Nil fields are left unchanged.
type UpdateRequisitionRequest struct {
	Item         *string `json:"item"`
	Amount       *string `json:"amount"`
	Description  *string `json:"description"`
	Comment      *string `json:"comment"`
	Date         *string `json:"date"`
	Urgency      *string `json:"urgency"`
	DocumentURL  *string `json:"document_url"`
	DocumentName *string `json:"document_name"`
	DocumentType *string `json:"document_type"`
	Submit       bool    `json:"submit"` // promote a draft to Submitted
	Version      *int    `json:"version"`
}

type DecisionRequest struct {
	Version *int `json:"version"`
}

type RequisitionFilter struct {
	Search string
	Status string // all, approved, declined, pending, finance-review
	Page   int
	Limit  int
}

type RequisitionResponse struct {
	model.Requisition
	DerivedStatus        string `json:"derived_status"`
	DisplayTransactionID string `json:"display_transaction_id"`
}

// --- Collaborators ---

// IDGenerator mints transaction IDs.
type IDGenerator interface {
	Generate(prefix string) string
}

// Notifier hands an email payload to the delivery collaborator. It must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// EventPublisher broadcasts requisition changes to connected clients.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// --- Interface ---

type RequisitionService interface {
	Create(ctx context.Context, p model.Principal, req CreateRequisitionRequest) (RequisitionResponse, error)
	Get(ctx context.Context, p model.Principal, id string) (RequisitionResponse, error)
	List(ctx context.Context, p model.Principal, filter RequisitionFilter) ([]RequisitionResponse, int, error)
	ListActionable(ctx context.Context, p model.Principal) ([]RequisitionResponse, error)
	Update(ctx context.Context, p model.Principal, id string, req UpdateRequisitionRequest) (RequisitionResponse, error)
	Decide(ctx context.Context, p model.Principal, id string, stage Stage, decision Decision, req DecisionRequest) (RequisitionResponse, error)
	Visible(ctx context.Context, p model.Principal, filter RequisitionFilter) ([]model.Requisition, error)
	Find(ctx context.Context, p model.Principal, id string) (model.Requisition, error)
}

// RequisitionDeps wires the requisition service.
type RequisitionDeps struct {
	Requisitions repository.RequisitionRepository
	Audit        repository.AuditRepository
	TxManager    repository.TransactionManager
	Availability AvailabilityChecker
	Notifier     Notifier
	Events       EventPublisher
	IDs          IDGenerator
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
}

type requisitionService struct {
	reqRepo      repository.RequisitionRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	availability AvailabilityChecker
	notifier     Notifier
	events       EventPublisher
	ids          IDGenerator
	metrics      *metrics.Metrics
	log          *zap.Logger
	now          func() time.Time
}

func NewRequisitionService(d RequisitionDeps) RequisitionService {
	s := &requisitionService{
		reqRepo:      d.Requisitions,
		auditRepo:    d.Audit,
		txManager:    d.TxManager,
		availability: d.Availability,
		notifier:     d.Notifier,
		events:       d.Events,
		ids:          d.IDs,
		metrics:      d.Metrics,
		log:          d.Logger,
		now:          d.Now,
	}
	if s.ids == nil {
		s.ids = txid.NewGenerator(nil, nil)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// --- Implementation ---

func (s *requisitionService) Create(ctx context.Context, p model.Principal, req CreateRequisitionRequest) (RequisitionResponse, error) {
	if !p.Role.CanSubmit() {
		return RequisitionResponse{}, ErrForbidden
	}

	now := s.now()
	verr := &ValidationError{}

	item := strings.TrimSpace(req.Item)
	if item == "" {
		verr.add("item", "is required")
	}
	amount, _ := parseAmount(req.Amount, verr)
	date, _ := parseDate(req.Date, now, verr)
	urgency := parseUrgency(req.Urgency, verr)
	if p.Role == model.RoleEmployee && p.Department == "" {
		verr.add("department", "employee has no department assigned")
	}
	if p.ID == "" {
		verr.add("requested_by", "is required")
	}
	if err := verr.orNil(); err != nil {
		return RequisitionResponse{}, err
	}

	r := &model.Requisition{
		ID:                    uuid.New(),
		TransactionID:         s.ids.Generate(txid.DefaultPrefix),
		RequestedBy:           p.ID,
		RequestedByName:       p.Name,
		RequestedByEmail:      p.Email,
		RequestedByRole:       p.Role,
		RequestedByDepartment: p.Department,
		Item:                  item,
		Amount:                amount,
		Description:           strings.TrimSpace(req.Description),
		Comment:               strings.TrimSpace(req.Comment),
		Date:                  date,
		Urgency:               urgency,
		Status:                model.SubmissionSubmitted,
		HODStatus:             model.StatusPending,
		FinanceStatus:         model.StatusPending,
		DocumentURL:           req.DocumentURL,
		DocumentName:          req.DocumentName,
		DocumentType:          req.DocumentType,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.Draft {
		r.Status = model.SubmissionDraft
	}

	routed := false
	if r.Status == model.SubmissionSubmitted {
		var err error
		if routed, err = s.route(ctx, r, p, now); err != nil {
			return RequisitionResponse{}, err
		}
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reqRepo.Create(txCtx, r); err != nil {
			return fmt.Errorf("failed to create requisition: %w", err)
		}
		if err := s.writeAudit(txCtx, p.ID, p.Name, model.ActionCreateRequisition, r, map[string]interface{}{
			"item":   r.Item,
			"amount": r.Amount.StringFixed(2),
			"status": r.Status,
		}); err != nil {
			return err
		}
		if routed {
			return s.writeAudit(txCtx, model.SystemActor, model.SystemActor, model.ActionRouteRequisition, r, map[string]interface{}{
				"reason": model.HistoryAutoApprovedHOD,
			})
		}
		return nil
	})
	if err != nil {
		return RequisitionResponse{}, err
	}

	s.metrics.Created(string(p.Role))
	if routed {
		s.metrics.Transition(string(StageHOD), "auto_approve")
	}
	s.log.Info("requisition created",
		zap.String("transaction_id", r.TransactionID),
		zap.String("requested_by", r.RequestedBy),
		zap.String("role", string(r.RequestedByRole)),
		zap.Bool("auto_routed", routed),
	)

	resp := toRequisitionResponse(*r)
	s.publish("requisition.created", resp)
	return resp, nil
}

// route asks the availability collaborator when the requester is an approver.
func (s *requisitionService) route(ctx context.Context, r *model.Requisition, p model.Principal, now time.Time) (bool, error) {
	if !p.Role.IsApprover() {
		return Route(r, p.Role, true, now), nil
	}
	available := false
	if s.availability != nil {
		var err error
		available, err = s.availability.HODAvailable(ctx, p)
		if err != nil {
			return false, fmt.Errorf("failed to check approver availability: %w", err)
		}
	}
	return Route(r, p.Role, available, now), nil
}

func (s *requisitionService) Get(ctx context.Context, p model.Principal, id string) (RequisitionResponse, error) {
	r, err := s.Find(ctx, p, id)
	if err != nil {
		return RequisitionResponse{}, err
	}
	return toRequisitionResponse(r), nil
}

// Find loads a requisition inside the caller's visible set. Missing and hidden
// records produce the same ErrNotFound.
func (s *requisitionService) Find(ctx context.Context, p model.Principal, id string) (model.Requisition, error) {
	r, err := s.load(ctx, p, id)
	if err != nil {
		return model.Requisition{}, err
	}
	return *r, nil
}

func (s *requisitionService) load(ctx context.Context, p model.Principal, id string) (*model.Requisition, error) {
	r, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(p.Role, p.ID, p.Department, *r) {
		return nil, ErrNotFound
	}
	return r, nil
}

// loadForDecision also admits a caller who may decide stage without seeing
// the record in their list, such as a peer HOD working the pending queue.
func (s *requisitionService) loadForDecision(ctx context.Context, p model.Principal, id string, stage Stage) (*model.Requisition, error) {
	r, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(p.Role, p.ID, p.Department, *r) && !CanAct(*r, stage, p) {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *requisitionService) fetch(ctx context.Context, id string) (*model.Requisition, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	r, err := s.reqRepo.FindByID(ctx, reqID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load requisition: %w", err)
	}
	return r, nil
}

func (s *requisitionService) Visible(ctx context.Context, p model.Principal, filter RequisitionFilter) ([]model.Requisition, error) {
	all, err := s.reqRepo.ListVisible(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requisitions: %w", err)
	}
	visible := ListFor(all, p.Role, p.ID, p.Department)
	visible = Search(visible, filter.Search)
	return FilterByDerivedStatus(visible, filter.Status), nil
}

func (s *requisitionService) List(ctx context.Context, p model.Principal, filter RequisitionFilter) ([]RequisitionResponse, int, error) {
	visible, err := s.Visible(ctx, p, filter)
	if err != nil {
		return nil, 0, err
	}

	total := len(visible)
	start, end := pagination.New(filter.Page, filter.Limit).Window(total)

	result := make([]RequisitionResponse, 0, end-start)
	for _, r := range visible[start:end] {
		result = append(result, toRequisitionResponse(r))
	}
	return result, total, nil
}

// ListActionable returns requisitions awaiting a decision the caller may record.
func (s *requisitionService) ListActionable(ctx context.Context, p model.Principal) ([]RequisitionResponse, error) {
	var (
		candidates []model.Requisition
		stage      Stage
		err        error
	)
	switch p.Role {
	case model.RoleHOD:
		if p.Department == "" {
			return []RequisitionResponse{}, nil
		}
		stage = StageHOD
		candidates, err = s.reqRepo.ListAwaitingHOD(ctx, p.Department)
	case model.RoleFinance:
		stage = StageFinance
		candidates, err = s.reqRepo.ListVisible(ctx, p)
		candidates = FilterByDerivedStatus(candidates, FilterFinanceReview)
	default:
		return []RequisitionResponse{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending requisitions: %w", err)
	}

	result := make([]RequisitionResponse, 0, len(candidates))
	for _, r := range candidates {
		if r.Status == model.SubmissionSubmitted && CanAct(r, stage, p) {
			result = append(result, toRequisitionResponse(r))
		}
	}
	return result, nil
}

func (s *requisitionService) Update(ctx context.Context, p model.Principal, id string, req UpdateRequisitionRequest) (RequisitionResponse, error) {
	var (
		r      *model.Requisition
		routed bool
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if r, err = s.load(txCtx, p, id); err != nil {
			return err
		}
		if r.RequestedBy != p.ID {
			return ErrForbidden
		}
		if r.Touched() {
			return ErrLocked
		}
		if req.Version != nil && *req.Version != r.Version {
			return ErrVersionConflict
		}

		now := s.now()
		if err := applyUpdate(r, req, now); err != nil {
			return err
		}
		if req.Submit && r.Status == model.SubmissionDraft {
			r.Status = model.SubmissionSubmitted
			if routed, err = s.route(txCtx, r, p, now); err != nil {
				return err
			}
		}
		r.UpdatedAt = now

		if err := s.save(txCtx, r); err != nil {
			return err
		}
		return s.writeAudit(txCtx, p.ID, p.Name, model.ActionUpdateRequisition, r, map[string]interface{}{
			"status":      r.Status,
			"auto_routed": routed,
		})
	})
	if err != nil {
		return RequisitionResponse{}, err
	}

	if routed {
		s.metrics.Transition(string(StageHOD), "auto_approve")
	}
	resp := toRequisitionResponse(*r)
	s.publish("requisition.updated", resp)
	return resp, nil
}

func (s *requisitionService) Decide(ctx context.Context, p model.Principal, id string, stage Stage, decision Decision, req DecisionRequest) (RequisitionResponse, error) {
	var r *model.Requisition
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if r, err = s.loadForDecision(txCtx, p, id, stage); err != nil {
			return err
		}
		if r.Status != model.SubmissionSubmitted {
			return ErrInvalidTransition
		}
		if req.Version != nil && *req.Version != r.Version {
			return ErrVersionConflict
		}

		now := s.now()
		if err := Transition(r, stage, decision, p, now); err != nil {
			return err
		}
		r.UpdatedAt = now

		if err := s.save(txCtx, r); err != nil {
			return err
		}
		return s.writeAudit(txCtx, p.ID, p.Name, auditAction(stage, decision), r, map[string]interface{}{
			"hod_status":     r.HODStatus,
			"finance_status": r.FinanceStatus,
		})
	})
	if err != nil {
		return RequisitionResponse{}, err
	}

	s.metrics.Transition(string(stage), string(decision))
	s.log.Info("requisition decision recorded",
		zap.String("transaction_id", r.TransactionID),
		zap.String("stage", string(stage)),
		zap.String("decision", string(decision)),
		zap.String("actor", p.ID),
	)

	resp := toRequisitionResponse(*r)
	s.publish("requisition.updated", resp)
	s.notifyRequester(ctx, *r, stage, decision, p)
	return resp, nil
}

// save persists r guarded by the version it was loaded with.
func (s *requisitionService) save(ctx context.Context, r *model.Requisition) error {
	if err := s.reqRepo.Update(ctx, r, r.Version); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to update requisition: %w", err)
	}
	return nil
}

// notifyRequester emails the requester when the outcome is final.
func (s *requisitionService) notifyRequester(ctx context.Context, r model.Requisition, stage Stage, decision Decision, actor model.Principal) {
	if s.notifier == nil || r.RequestedByEmail == "" {
		return
	}

	var tpl string
	switch {
	case decision == DecisionDecline:
		tpl = model.TemplateQuoteDeclined
	case stage == StageFinance:
		tpl = model.TemplateQuoteApproved
	default:
		return
	}

	s.notifier.Notify(ctx, model.Notification{
		RecipientEmail: r.RequestedByEmail,
		TemplateType:   tpl,
		Variables: map[string]string{
			"name":           r.RequestedByName,
			"item":           r.Item,
			"amount":         r.Amount.StringFixed(2),
			"transaction_id": txid.Format(r.TransactionID),
			"status":         r.DerivedStatus(),
			"stage":          string(stage),
			"actor":          actor.Name,
		},
	})
}

func (s *requisitionService) publish(event string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func (s *requisitionService) writeAudit(ctx context.Context, actorID, actorName, action string, r *model.Requisition, details map[string]interface{}) error {
	raw, _ := json.Marshal(details)
	entry := model.AuditLog{
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		EntityID:   r.ID.String(),
		EntityName: r.TransactionID,
		Details:    string(raw),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// --- Helpers ---

func auditAction(stage Stage, decision Decision) string {
	switch {
	case stage == StageHOD && decision == DecisionApprove:
		return model.ActionHODApprove
	case stage == StageHOD:
		return model.ActionHODDecline
	case decision == DecisionApprove:
		return model.ActionFinanceApprove
	default:
		return model.ActionFinanceDecline
	}
}

func applyUpdate(r *model.Requisition, req UpdateRequisitionRequest, now time.Time) error {
	verr := &ValidationError{}
	if req.Item != nil {
		if item := strings.TrimSpace(*req.Item); item == "" {
			verr.add("item", "is required")
		} else {
			r.Item = item
		}
	}
	if req.Amount != nil {
		if amount, ok := parseAmount(*req.Amount, verr); ok {
			r.Amount = amount
		}
	}
	if req.Date != nil {
		if date, ok := parseDate(*req.Date, now, verr); ok {
			r.Date = date
		}
	}
	if req.Urgency != nil {
		r.Urgency = parseUrgency(*req.Urgency, verr)
	}
	if req.Description != nil {
		r.Description = strings.TrimSpace(*req.Description)
	}
	if req.Comment != nil {
		r.Comment = strings.TrimSpace(*req.Comment)
	}
	if req.DocumentURL != nil {
		r.DocumentURL = *req.DocumentURL
	}
	if req.DocumentName != nil {
		r.DocumentName = *req.DocumentName
	}
	if req.DocumentType != nil {
		r.DocumentType = *req.DocumentType
	}
	return verr.orNil()
}

func parseAmount(raw string, verr *ValidationError) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		verr.add("amount", "must be a decimal number")
		return decimal.Zero, false
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		verr.add("amount", "must be greater than 0")
		return decimal.Zero, false
	}
	return amount, true
}

func parseDate(raw string, now time.Time, verr *ValidationError) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		verr.add("date", "must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseUrgency(raw string, verr *ValidationError) string {
	switch u := strings.ToUpper(strings.TrimSpace(raw)); u {
	case "":
		return model.UrgencyNormal
	case model.UrgencyLow, model.UrgencyNormal, model.UrgencyHigh, model.UrgencyUrgent:
		return u
	default:
		verr.add("urgency", "must be one of LOW, NORMAL, HIGH, URGENT")
		return ""
	}
}

func toRequisitionResponse(r model.Requisition) RequisitionResponse {
	if r.History == nil {
		r.History = []model.HistoryEntry{}
	}
	return RequisitionResponse{
		Requisition:          r,
		DerivedStatus:        r.DerivedStatus(),
		DisplayTransactionID: txid.Format(r.TransactionID),
	}
}
