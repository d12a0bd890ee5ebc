package service

import (
	"context"
	"errors"
	"testing"

	"quoteportal/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRequest(item string) CreateRequisitionRequest {
	return CreateRequisitionRequest{Item: item, Amount: "1250.50", Description: "for the new hires", Date: "2026-10-15"}
}

func TestCreate_EmployeeRequisitionStartsPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	assert.Equal(t, "QR-20261016-1792143000000-AB12CD", res.TransactionID)
	assert.Equal(t, "QR-20261016-***-AB12CD", res.DisplayTransactionID)
	assert.Equal(t, model.StatusPending, res.HODStatus)
	assert.Equal(t, model.StatusPending, res.FinanceStatus)
	assert.Equal(t, model.DerivedPending, res.DerivedStatus)
	assert.Equal(t, model.SubmissionSubmitted, res.Status)
	assert.Equal(t, model.UrgencyNormal, res.Urgency)
	assert.Equal(t, "1250.50", res.Amount.StringFixed(2))
	assert.Equal(t, "IT", res.RequestedByDepartment)
	assert.Empty(t, res.History)
	assert.Equal(t, 1, res.Version)

	assert.Zero(t, f.availability.calls, "employees are never routed around the HOD")
	assert.Equal(t, []string{model.ActionCreateRequisition}, f.audit.actions())
	require.Len(t, f.events.events, 1)
	assert.Equal(t, "requisition.created", f.events.events[0].name)
}

func TestCreate_ApproverWithoutAvailableHODIsAutoApproved(t *testing.T) {
	f := newFixture()
	f.availability.available = false

	res, err := f.svc.Create(context.Background(), hodIT, createRequest("Monitor"))
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, res.HODStatus)
	assert.Equal(t, model.StatusPending, res.FinanceStatus)
	assert.Equal(t, model.DerivedFinanceReview, res.DerivedStatus)
	require.Len(t, res.History, 1)
	assert.Equal(t, model.HistoryAutoApprovedHOD, res.History[0].Status)
	assert.Equal(t, model.SystemActor, res.History[0].By)
	assert.Equal(t, []string{model.ActionCreateRequisition, model.ActionRouteRequisition}, f.audit.actions())
}

func TestCreate_ApproverWithAvailableHODWaitsForHOD(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Create(context.Background(), hodIT, createRequest("Monitor"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.availability.calls)
	assert.Equal(t, model.StatusPending, res.HODStatus)
	assert.Empty(t, res.History)
}

func TestCreate_AvailabilityFailureAbortsCreate(t *testing.T) {
	f := newFixture()
	f.availability.err = errors.New("directory down")

	_, err := f.svc.Create(context.Background(), finance, createRequest("Licence"))
	require.Error(t, err)
	assert.Empty(t, f.repo.order)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), employeeIT, CreateRequisitionRequest{
		Item:    "  ",
		Amount:  "-5",
		Date:    "16/10/2026",
		Urgency: "soon",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "item")
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "date")
	assert.Contains(t, verr.Fields, "urgency")
	assert.Empty(t, f.repo.order)
	assert.Empty(t, f.audit.actions())
}

func TestCreate_EmployeeWithoutDepartmentRejected(t *testing.T) {
	f := newFixture()
	p := employeeIT
	p.Department = ""

	_, err := f.svc.Create(context.Background(), p, createRequest("Chair"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "department")
}

func TestCreate_AdministrativeRolesCannotSubmit(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), admin, createRequest("Chair"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGet_HiddenAndMissingAreIndistinguishable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, employee2, res.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(ctx, hodSales, res.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(ctx, employeeIT, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(ctx, employeeIT, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Get(ctx, hodIT, res.ID.String())
	require.NoError(t, err)
	assert.Equal(t, res.TransactionID, got.TransactionID)
}

func TestDecide_FullApproval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)
	id := res.ID.String()

	res, err = f.svc.Decide(ctx, hodIT, id, StageHOD, DecisionApprove, DecisionRequest{Version: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, model.DerivedFinanceReview, res.DerivedStatus)
	assert.Equal(t, 2, res.Version)
	assert.Empty(t, f.notifier.sent, "intermediate approvals do not email the requester")

	res, err = f.svc.Decide(ctx, finance, id, StageFinance, DecisionApprove, DecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.DerivedApproved, res.DerivedStatus)
	assert.Equal(t, 3, res.Version)

	require.Len(t, res.History, 2)
	assert.Equal(t, model.HistoryHODApproved, res.History[0].Status)
	assert.Equal(t, "h1", res.History[0].By)
	assert.Equal(t, string(model.RoleHOD), res.History[0].ByRole)
	assert.Equal(t, model.HistoryFinanceApproved, res.History[1].Status)
	assert.Equal(t, []int{1, 2}, []int{res.History[0].Seq, res.History[1].Seq})

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, model.TemplateQuoteApproved, n.TemplateType)
	assert.Equal(t, "e1@example.com", n.RecipientEmail)
	assert.Equal(t, "QR-20261016-***-AB12CD", n.Variables["transaction_id"])

	assert.Equal(t, []string{
		model.ActionCreateRequisition,
		model.ActionHODApprove,
		model.ActionFinanceApprove,
	}, f.audit.actions())
}

func TestDecide_FinanceBeforeHODIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, finance, res.ID.String(), StageFinance, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrOutOfOrder)

	stored := f.repo.stored(res.ID)
	assert.Equal(t, model.StatusPending, stored.FinanceStatus)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, stored.History)
}

func TestDecide_DeclineIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)
	id := res.ID.String()

	res, err = f.svc.Decide(ctx, hodIT, id, StageHOD, DecisionDecline, DecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.DerivedDeclined, res.DerivedStatus)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, model.TemplateQuoteDeclined, f.notifier.sent[0].TemplateType)

	_, err = f.svc.Decide(ctx, hodIT2, id, StageHOD, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Decide(ctx, finance, id, StageFinance, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Len(t, f.repo.stored(res.ID).History, 1)
}

func TestDecide_HODScope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	own, err := f.svc.Create(ctx, hodIT, createRequest("Monitor"))
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, hodIT, own.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrForbidden, "no self approval")

	_, err = f.svc.Decide(ctx, hodSales, own.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrNotFound, "other departments cannot see the record")

	res, err := f.svc.Decide(ctx, hodIT2, own.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	require.NoError(t, err, "a peer HOD of the same department may act")
	assert.Equal(t, model.StatusApproved, res.HODStatus)
}

func TestPeerHOD_DecidesFromQueueWithoutSeeingRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	own, err := f.svc.Create(ctx, hodIT, createRequest("Monitor"))
	require.NoError(t, err)
	id := own.ID.String()

	listed, total, err := f.svc.List(ctx, hodIT2, RequisitionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, listed)

	_, err = f.svc.Get(ctx, hodIT2, id)
	assert.ErrorIs(t, err, ErrNotFound, "get agrees with list")

	_, err = f.svc.Find(ctx, hodIT2, id)
	assert.ErrorIs(t, err, ErrNotFound)

	queue, err := f.svc.ListActionable(ctx, hodIT2)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, own.ID, queue[0].ID)

	_, err = f.svc.Decide(ctx, hodIT2, id, StageFinance, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrNotFound, "only the HOD stage opens the record to a peer")

	_, err = f.svc.Decide(ctx, hodIT2, id, StageHOD, DecisionApprove, DecisionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, hodIT2, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecide_FinanceCannotApproveOwnRequest(t *testing.T) {
	f := newFixture()
	f.availability.available = false
	ctx := context.Background()

	res, err := f.svc.Create(ctx, finance, createRequest("Licence"))
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, res.HODStatus)

	_, err = f.svc.Decide(ctx, finance, res.ID.String(), StageFinance, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDecide_VersionConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, hodIT, res.ID.String(), StageHOD, DecisionApprove, DecisionRequest{Version: intPtr(7)})
	assert.ErrorIs(t, err, ErrVersionConflict)

	f.repo.staleOn = f.repo.updates + 1
	_, err = f.svc.Decide(ctx, hodIT, res.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrVersionConflict)

	assert.Equal(t, model.StatusPending, f.repo.stored(res.ID).HODStatus)
	assert.Equal(t, []string{model.ActionCreateRequisition}, f.audit.actions())
}

func TestDecide_DraftIsNotActionable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := createRequest("Laptop")
	req.Draft = true
	res, err := f.svc.Create(ctx, employeeIT, req)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, hodIT, res.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdate_EditsBeforeFirstAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, employeeIT, res.ID.String(), UpdateRequisitionRequest{
		Item:    strPtr("Laptop 16GB"),
		Amount:  strPtr("1400"),
		Urgency: strPtr("high"),
		Version: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Laptop 16GB", updated.Item)
	assert.Equal(t, "1400.00", updated.Amount.StringFixed(2))
	assert.Equal(t, model.UrgencyHigh, updated.Urgency)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, res.TransactionID, updated.TransactionID)
}

func TestUpdate_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)
	id := res.ID.String()

	_, err = f.svc.Update(ctx, hodIT, id, UpdateRequisitionRequest{Item: strPtr("x")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Update(ctx, employeeIT, id, UpdateRequisitionRequest{Amount: strPtr("0")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.Update(ctx, employeeIT, id, UpdateRequisitionRequest{Item: strPtr("x"), Version: intPtr(9)})
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = f.svc.Decide(ctx, hodIT, id, StageHOD, DecisionApprove, DecisionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, employeeIT, id, UpdateRequisitionRequest{Item: strPtr("x")})
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, "Laptop", f.repo.stored(res.ID).Item)
}

func TestUpdate_SubmittingDraftRoutes(t *testing.T) {
	f := newFixture()
	f.availability.available = false
	ctx := context.Background()

	req := createRequest("Monitor")
	req.Draft = true
	res, err := f.svc.Create(ctx, hodIT, req)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionDraft, res.Status)
	assert.Zero(t, f.availability.calls, "drafts are routed on submit")

	res, err = f.svc.Update(ctx, hodIT, res.ID.String(), UpdateRequisitionRequest{Submit: true})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, res.Status)
	assert.Equal(t, model.StatusApproved, res.HODStatus)
	require.Len(t, res.History, 1)
	assert.Equal(t, model.SystemActor, res.History[0].By)
}

func TestList_HugePageReturnsEmptyPage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, employeeIT, RequisitionFilter{Page: 46116860184273880, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)
}

func TestList_ScopesSearchesAndPaginates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, item := range []string{"Laptop", "Desk", "Laptop stand"} {
		_, err := f.svc.Create(ctx, employeeIT, createRequest(item))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, employee2, createRequest("Laptop bag"))
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, employeeIT, RequisitionFilter{Search: "LAPTOP"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = f.svc.List(ctx, hodIT, RequisitionFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, items, 1)

	items, total, err = f.svc.List(ctx, admin, RequisitionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestListActionable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	emp, err := f.svc.Create(ctx, employeeIT, createRequest("Laptop"))
	require.NoError(t, err)
	own, err := f.svc.Create(ctx, hodIT, createRequest("Monitor"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, model.Principal{ID: "e9", Name: "Sam", Role: model.RoleEmployee, Department: "Sales"}, createRequest("Phone"))
	require.NoError(t, err)

	queue, err := f.svc.ListActionable(ctx, hodIT)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, emp.ID, queue[0].ID)

	queue, err = f.svc.ListActionable(ctx, hodIT2)
	require.NoError(t, err)
	assert.Len(t, queue, 2, "peer HOD sees the employee request and the other HOD's request")

	queue, err = f.svc.ListActionable(ctx, finance)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.svc.Decide(ctx, hodIT2, own.ID.String(), StageHOD, DecisionApprove, DecisionRequest{})
	require.NoError(t, err)

	queue, err = f.svc.ListActionable(ctx, finance)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, own.ID, queue[0].ID)

	queue, err = f.svc.ListActionable(ctx, employeeIT)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
