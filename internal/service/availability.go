package service

import (
	"context"
	"strings"

	"quoteportal/internal/model"
	"quoteportal/internal/repository"
)

// AvailabilityChecker answers whether a human HOD can review a requisition
// raised by requester.
type AvailabilityChecker interface {
	HODAvailable(ctx context.Context, requester model.Principal) (bool, error)
}

type directoryAvailability struct {
	users repository.UserRepository
}

// NewDirectoryAvailability checks the user directory for another available HOD
// in the requester's department.
func NewDirectoryAvailability(users repository.UserRepository) AvailabilityChecker {
	return &directoryAvailability{users: users}
}

func (d *directoryAvailability) HODAvailable(ctx context.Context, requester model.Principal) (bool, error) {
	if requester.Department == "" {
		return false, nil
	}
	email := strings.ToLower(strings.TrimSpace(requester.Email))
	n, err := d.users.CountAvailable(ctx, model.RoleHOD, requester.Department, email)
	if err != nil {
		return false, err
	}
	// Without an email the requester's own entry cannot be excluded, so an
	// HOD requester may be among those counted.
	if email == "" && requester.Role == model.RoleHOD {
		return n > 1, nil
	}
	return n > 0, nil
}
