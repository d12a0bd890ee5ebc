package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quoteportal/internal/metrics"
	"quoteportal/internal/model"
	"quoteportal/internal/repository"

	"go.uber.org/zap"
)

// ExportResult is a downloadable text artefact.
type ExportResult struct {
	Filename string
	Content  string
	Rows     int
}

type ReportService interface {
	Analytics(ctx context.Context, p model.Principal) (model.Analytics, error)
	ExportCSV(ctx context.Context, p model.Principal, filter RequisitionFilter) (ExportResult, error)
	DetailReport(ctx context.Context, p model.Principal, id string) (ExportResult, error)
}

type reportService struct {
	requisitions RequisitionService
	auditRepo    repository.AuditRepository
	metrics      *metrics.Metrics
	log          *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewReportService builds reports over the caller's visible requisitions.
// Report timestamps are rendered in loc.
func NewReportService(requisitions RequisitionService, auditRepo repository.AuditRepository, m *metrics.Metrics, log *zap.Logger, loc *time.Location, now func() time.Time) ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &reportService{requisitions: requisitions, auditRepo: auditRepo, metrics: m, log: log, loc: loc, now: now}
}

func (s *reportService) Analytics(ctx context.Context, p model.Principal) (model.Analytics, error) {
	visible, err := s.requisitions.Visible(ctx, p, RequisitionFilter{})
	if err != nil {
		return model.Analytics{}, err
	}
	return Summarize(visible, s.now().In(s.loc)), nil
}

func (s *reportService) ExportCSV(ctx context.Context, p model.Principal, filter RequisitionFilter) (ExportResult, error) {
	visible, err := s.requisitions.Visible(ctx, p, filter)
	if err != nil {
		return ExportResult{}, err
	}

	now := s.now().In(s.loc)
	res := ExportResult{
		Filename: ExportFilename(now),
		Content:  ToCSV(visible),
		Rows:     len(visible),
	}

	details, _ := json.Marshal(map[string]interface{}{
		"rows":   res.Rows,
		"search": filter.Search,
		"status": filter.Status,
	})
	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		ActorID:    p.ID,
		ActorName:  p.Name,
		Action:     model.ActionExportRequisitions,
		EntityName: res.Filename,
		Details:    string(details),
	}); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write audit log: %w", err)
	}

	s.metrics.Exported(res.Rows)
	s.log.Info("requisitions exported", zap.String("actor", p.ID), zap.Int("rows", res.Rows))
	return res, nil
}

func (s *reportService) DetailReport(ctx context.Context, p model.Principal, id string) (ExportResult, error) {
	r, err := s.requisitions.Find(ctx, p, id)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{
		Filename: "quote_" + r.TransactionID + ".csv",
		Content:  ToDetailReport(r, s.loc),
		Rows:     1,
	}, nil
}
