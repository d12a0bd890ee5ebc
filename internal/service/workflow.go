package service

import (
	"time"

	"quoteportal/internal/model"
)

// Stage identifies one of the two sign-off steps.
type Stage string

const (
	StageHOD     Stage = "hod"
	StageFinance Stage = "finance"
)

// Decision is the outcome an approver records at a stage.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// Route applies submission-time routing. Requisitions raised by an approver
// role skip the HOD stage when no other HOD is available; the Finance stage is
// never skipped. It reports whether a history entry was appended.
func Route(r *model.Requisition, requestorRole model.Role, approverAvailable bool, now time.Time) bool {
	if !requestorRole.IsApprover() {
		return false
	}
	if approverAvailable {
		r.HODStatus = model.StatusPending
		r.FinanceStatus = model.StatusPending
		return false
	}
	r.HODStatus = model.StatusApproved
	r.FinanceStatus = model.StatusPending
	r.History = appendHistory(r.History, model.HistoryEntry{
		Status: model.HistoryAutoApprovedHOD,
		Date:   now,
		By:     model.SystemActor,
		ByName: model.SystemActor,
	})
	return true
}

// Transition records an approver's decision at stage. The requisition is only
// modified when the returned error is nil.
//
// Ordering policy: Finance may act only after the HOD stage is Approved.
func Transition(r *model.Requisition, stage Stage, decision Decision, actor model.Principal, now time.Time) error {
	if decision != DecisionApprove && decision != DecisionDecline {
		verr := &ValidationError{}
		verr.add("decision", "must be approve or decline")
		return verr
	}
	if err := authorizeStage(r, stage, actor); err != nil {
		return err
	}

	var label string
	switch stage {
	case StageHOD:
		if r.HODStatus != model.StatusPending {
			return ErrInvalidTransition
		}
		if decision == DecisionApprove {
			r.HODStatus, label = model.StatusApproved, model.HistoryHODApproved
		} else {
			r.HODStatus, label = model.StatusDeclined, model.HistoryHODDeclined
		}
	case StageFinance:
		if r.HODStatus != model.StatusApproved {
			if r.HODStatus == model.StatusDeclined {
				return ErrInvalidTransition
			}
			return ErrOutOfOrder
		}
		if r.FinanceStatus != model.StatusPending {
			return ErrInvalidTransition
		}
		if decision == DecisionApprove {
			r.FinanceStatus, label = model.StatusApproved, model.HistoryFinanceApproved
		} else {
			r.FinanceStatus, label = model.StatusDeclined, model.HistoryFinanceDeclined
		}
	}

	r.History = appendHistory(r.History, model.HistoryEntry{
		Status: label,
		Date:   now,
		By:     actor.ID,
		ByName: actor.Name,
		ByRole: string(actor.Role),
	})
	return nil
}

// CanAct reports whether actor may record a decision at stage, ignoring the
// current state of the requisition.
func CanAct(r model.Requisition, stage Stage, actor model.Principal) bool {
	return authorizeStage(&r, stage, actor) == nil
}

func authorizeStage(r *model.Requisition, stage Stage, actor model.Principal) error {
	if actor.ID == "" || actor.ID == r.RequestedBy {
		return ErrForbidden
	}
	switch stage {
	case StageHOD:
		if actor.Role != model.RoleHOD || actor.Department == "" || actor.Department != r.RequestedByDepartment {
			return ErrForbidden
		}
	case StageFinance:
		if actor.Role != model.RoleFinance {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}
	return nil
}

func appendHistory(h []model.HistoryEntry, e model.HistoryEntry) []model.HistoryEntry {
	e.Seq = len(h) + 1
	return append(h, e)
}
