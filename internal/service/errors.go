// internal/service/errors.go
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lid-trainer/backend/internal/domain/testsession"
)

var (
	// ErrValidation marks bad input: invalid configuration, an unknown
	// question or an out-of-range index.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict marks an operation the session's status does not allow.
	ErrStateConflict = errors.New("session state conflict")
	ErrNotFound      = errors.New("not found")
	ErrNoMistakes    = errors.New("no mistakes available for practice")

	ErrOutOfRange = fmt.Errorf("%w: question index out of range", ErrValidation)
)

// StateConflictError reports which session blocked an operation and why.
type StateConflictError struct {
	Op        string
	SessionID string
	Status    testsession.Status
	Allowed   []testsession.Status
}

func (e *StateConflictError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("%s: session %s is %s", e.Op, e.SessionID, e.Status)
	}
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s: session %s is %s, want %s", e.Op, e.SessionID, e.Status, strings.Join(allowed, " or "))
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

func conflict(op string, s *testsession.TestSession, allowed ...testsession.Status) error {
	return &StateConflictError{Op: op, SessionID: s.ID, Status: s.Status, Allowed: allowed}
}
