package service

import (
	"strings"

	"quoteportal/internal/model"
)

// Status filter values accepted by FilterByDerivedStatus.
const (
	FilterAll           = "all"
	FilterApproved      = "approved"
	FilterDeclined      = "declined"
	FilterPending       = "pending"
	FilterFinanceReview = "finance-review"
)

// CanView is the role-scoped visibility predicate for a single requisition.
func CanView(role model.Role, userID, department string, r model.Requisition) bool {
	switch role {
	case model.RoleEmployee:
		return r.RequestedBy == userID
	case model.RoleHOD:
		if r.RequestedBy == userID {
			return true
		}
		return department != "" &&
			r.RequestedByRole == model.RoleEmployee &&
			r.RequestedByDepartment == department
	case model.RoleFinance:
		return true
	default:
		return false
	}
}

// ListFor returns the subset of all visible to the caller. Order is preserved.
func ListFor(all []model.Requisition, role model.Role, userID, department string) []model.Requisition {
	if role == model.RoleFinance {
		return all
	}
	out := make([]model.Requisition, 0)
	for _, r := range all {
		if CanView(role, userID, department, r) {
			out = append(out, r)
		}
	}
	return out
}

// Search keeps requisitions whose item, requester name, description or comment
// contains term, case-insensitively. A blank term returns the input.
func Search(in []model.Requisition, term string) []model.Requisition {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return in
	}
	out := make([]model.Requisition, 0, len(in))
	for _, r := range in {
		if containsFold(r.Item, term) ||
			containsFold(r.RequestedByName, term) ||
			containsFold(r.Description, term) ||
			containsFold(r.Comment, term) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// FilterByDerivedStatus keeps requisitions in the named derived-status bucket.
// The four non-"all" buckets partition any collection. Unknown values mean "all".
func FilterByDerivedStatus(in []model.Requisition, status string) []model.Requisition {
	want, ok := derivedForFilter(status)
	if !ok {
		return in
	}
	out := make([]model.Requisition, 0, len(in))
	for _, r := range in {
		if r.DerivedStatus() == want {
			out = append(out, r)
		}
	}
	return out
}

func derivedForFilter(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case FilterApproved:
		return model.DerivedApproved, true
	case FilterDeclined:
		return model.DerivedDeclined, true
	case FilterPending:
		return model.DerivedPending, true
	case FilterFinanceReview:
		return model.DerivedFinanceReview, true
	default:
		return "", false
	}
}

// EventAudience reports whether p may receive a live event carrying payload.
// Requisition events follow the same rule as Get and List; anything else is
// administrative only.
func EventAudience(p model.Principal, payload interface{}) bool {
	var r model.Requisition
	switch v := payload.(type) {
	case RequisitionResponse:
		r = v.Requisition
	case model.Requisition:
		r = v
	default:
		return p.Role.IsAdministrative()
	}
	return CanView(p.Role, p.ID, p.Department, r)
}
