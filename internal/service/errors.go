package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("requisition not found")
	ErrForbidden         = errors.New("access denied: insufficient permissions")
	ErrInvalidTransition = errors.New("requisition is no longer pending at this stage")
	ErrOutOfOrder        = errors.New("finance cannot act before HOD approval")
	ErrLocked            = errors.New("requisition can no longer be edited after an approval action")
	ErrVersionConflict   = errors.New("requisition was modified concurrently, reload and retry")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
