package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"quoteportal/internal/model"
	"quoteportal/internal/repository"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	ActorName  string          `json:"actor_name"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// AuditQuery is the caller-facing audit filter. Since is a YYYY-MM-DD date.
type AuditQuery struct {
	EntityID string
	Action   string
	ActorID  string
	Since    string
	Page     int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
	loc  *time.Location
}

// NewAuditService creates a new AuditService instance. Since dates are read in loc.
func NewAuditService(repo repository.AuditRepository, loc *time.Location) AuditService {
	if loc == nil {
		loc = time.Local
	}
	return &auditService{repo: repo, loc: loc}
}

func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{
		EntityID: strings.TrimSpace(q.EntityID),
		Action:   strings.ToUpper(strings.TrimSpace(q.Action)),
		ActorID:  strings.TrimSpace(q.ActorID),
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if q.Since != "" {
		since, err := time.ParseInLocation(exportDateLayout, q.Since, s.loc)
		if err != nil {
			return nil, 0, &ValidationError{Fields: map[string]string{"since": "must be YYYY-MM-DD"}}
		}
		filter.Since = since
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditLogResponse(l))
	}
	return res, total, nil
}

func toAuditLogResponse(l model.AuditLog) AuditLogResponse {
	actorName := l.ActorName
	if actorName == "" {
		actorName = model.SystemActor
	}
	var details json.RawMessage
	if l.Details != "" && json.Valid([]byte(l.Details)) {
		details = json.RawMessage(l.Details)
	}
	return AuditLogResponse{
		ID:         l.ID.String(),
		ActorID:    l.ActorID,
		ActorName:  actorName,
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    details,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
}
