package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"quoteportal/internal/model"
	"quoteportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type fakeRequisitionRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]model.Requisition
	order   []uuid.UUID
	staleOn int // Update call number that reports a stale version, 0 disables
	updates int
}

func newFakeRequisitionRepo() *fakeRequisitionRepo {
	return &fakeRequisitionRepo{rows: map[uuid.UUID]model.Requisition{}}
}

func cloneRequisition(r model.Requisition) model.Requisition {
	r.History = append([]model.HistoryEntry(nil), r.History...)
	return r
}

func (f *fakeRequisitionRepo) Create(_ context.Context, req *model.Requisition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range req.History {
		req.History[i].ID = uuid.New()
		req.History[i].RequisitionID = req.ID
	}
	f.rows[req.ID] = cloneRequisition(*req)
	f.order = append(f.order, req.ID)
	return nil
}

func (f *fakeRequisitionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneRequisition(r)
	return &c, nil
}

func (f *fakeRequisitionRepo) all() []model.Requisition {
	out := make([]model.Requisition, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, cloneRequisition(f.rows[f.order[i]]))
	}
	return out
}

// ListVisible returns every row; the service applies the visibility predicate.
func (f *fakeRequisitionRepo) ListVisible(_ context.Context, _ model.Principal) ([]model.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all(), nil
}

func (f *fakeRequisitionRepo) ListAwaitingHOD(_ context.Context, department string) ([]model.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Requisition
	for _, r := range f.all() {
		if r.RequestedByDepartment == department && r.HODStatus == model.StatusPending && r.Status == model.SubmissionSubmitted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRequisitionRepo) Update(_ context.Context, req *model.Requisition, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	stored, ok := f.rows[req.ID]
	if !ok || stored.Version != expectedVersion || f.updates == f.staleOn {
		return repository.ErrStaleVersion
	}
	if len(req.History) < len(stored.History) {
		return errors.New("history truncated")
	}
	for i := range req.History {
		if req.History[i].ID == uuid.Nil {
			req.History[i].ID = uuid.New()
			req.History[i].RequisitionID = req.ID
		}
	}
	req.Version = expectedVersion + 1
	f.rows[req.ID] = cloneRequisition(*req)
	return nil
}

func (f *fakeRequisitionRepo) stored(id uuid.UUID) model.Requisition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequisition(f.rows[id])
}

type fakeAuditRepo struct {
	mu         sync.Mutex
	entries    []model.AuditLog
	lastFilter repository.AuditFilter
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []model.AuditLog
	for _, e := range f.entries {
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeAvailability struct {
	available bool
	err       error
	calls     int
}

func (f *fakeAvailability) HODAvailable(_ context.Context, _ model.Principal) (bool, error) {
	f.calls++
	return f.available, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

type publishedEvent struct {
	name    string
	payload interface{}
}

type fakeEvents struct {
	events []publishedEvent
}

func (f *fakeEvents) Publish(event string, payload interface{}) {
	f.events = append(f.events, publishedEvent{name: event, payload: payload})
}

type sequentialIDs struct{ n int }

func (s *sequentialIDs) Generate(prefix string) string {
	s.n++
	return prefix + "-20261016-1792143000000-" + string(rune('A'+s.n-1)) + "B12CD"
}

type fixture struct {
	svc          RequisitionService
	repo         *fakeRequisitionRepo
	audit        *fakeAuditRepo
	availability *fakeAvailability
	notifier     *fakeNotifier
	events       *fakeEvents
}

func newFixture() *fixture {
	f := &fixture{
		repo:         newFakeRequisitionRepo(),
		audit:        &fakeAuditRepo{},
		availability: &fakeAvailability{available: true},
		notifier:     &fakeNotifier{},
		events:       &fakeEvents{},
	}
	f.svc = NewRequisitionService(f.deps(f.availability))
	return f
}

func (f *fixture) deps(availability AvailabilityChecker) RequisitionDeps {
	return RequisitionDeps{
		Requisitions: f.repo,
		Audit:        f.audit,
		TxManager:    fakeTxManager{},
		Availability: availability,
		Notifier:     f.notifier,
		Events:       f.events,
		IDs:          &sequentialIDs{},
		Now:          func() time.Time { return testNow },
	}
}

var (
	employeeIT = model.Principal{ID: "e1", Email: "e1@example.com", Name: "Ema", Role: model.RoleEmployee, Department: "IT"}
	employee2  = model.Principal{ID: "e2", Email: "e2@example.com", Name: "Eli", Role: model.RoleEmployee, Department: "IT"}
	hodIT      = model.Principal{ID: "h1", Email: "h1@example.com", Name: "Hana", Role: model.RoleHOD, Department: "IT"}
	hodIT2     = model.Principal{ID: "h2", Email: "h2@example.com", Name: "Hugo", Role: model.RoleHOD, Department: "IT"}
	hodSales   = model.Principal{ID: "h3", Email: "h3@example.com", Name: "Hiro", Role: model.RoleHOD, Department: "Sales"}
	finance    = model.Principal{ID: "f1", Email: "f1@example.com", Name: "Fay", Role: model.RoleFinance}
	admin      = model.Principal{ID: "a1", Email: "a1@example.com", Name: "Ada", Role: model.RoleAdmin}
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
