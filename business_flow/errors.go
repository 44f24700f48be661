// Package businessflow contains the review use cases exposed by the service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Session-related errors
	ErrSessionNotFound = errors.New("review session not found")
	ErrSessionExpired  = errors.New("review session expired")
	ErrTooManySessions = errors.New("too many active review sessions")

	// Reference table errors
	ErrInvalidTableKind = errors.New("invalid reference table kind")
	ErrTableNotLoaded   = errors.New("reference table not loaded")
	ErrFileRequired     = errors.New("file is required")
	ErrFileTooLarge     = errors.New("file exceeds the upload limit")

	// Master list errors
	ErrMasterListEmpty  = errors.New("master list is empty")
	ErrInvalidCriteria  = errors.New("invalid filter criteria")
	ErrInvalidGroupBy   = errors.New("invalid group-by field")
	ErrUnknownStageKey  = errors.New("stage column not present in the master list")
	ErrInvalidStageKey  = errors.New("invalid stage column")
	ErrSameStageColumns = errors.New("comparison needs two different stage columns")

	// Simulation errors
	ErrNoSimulation        = errors.New("no simulation running")
	ErrNoEdits             = errors.New("at least one edit is required")
	ErrUnknownAssignment   = errors.New("edit names an unknown assignment")
	ErrSimulationNotFound  = errors.New("saved simulation not found")
	ErrSimulationNameEmpty = errors.New("simulation name is required")

	// Export errors
	ErrInvalidExportFilename = errors.New("invalid export filename")
	ErrInvalidExportView     = errors.New("invalid export view")

	// Infrastructure errors
	ErrPersistenceUnavailable = errors.New("persistence is not enabled")

	// Pagination errors
	ErrInvalidPage     = errors.New("page must be greater than 0")
	ErrInvalidPageSize = errors.New("page size is out of range")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsTooManySessions(err error) bool {
	return errors.Is(err, ErrTooManySessions)
}

func IsInvalidTableKind(err error) bool {
	return errors.Is(err, ErrInvalidTableKind)
}

func IsTableNotLoaded(err error) bool {
	return errors.Is(err, ErrTableNotLoaded)
}

func IsFileRequired(err error) bool {
	return errors.Is(err, ErrFileRequired)
}

func IsFileTooLarge(err error) bool {
	return errors.Is(err, ErrFileTooLarge)
}

func IsMasterListEmpty(err error) bool {
	return errors.Is(err, ErrMasterListEmpty)
}

func IsInvalidCriteria(err error) bool {
	return errors.Is(err, ErrInvalidCriteria)
}

func IsInvalidGroupBy(err error) bool {
	return errors.Is(err, ErrInvalidGroupBy)
}

func IsUnknownStageKey(err error) bool {
	return errors.Is(err, ErrUnknownStageKey)
}

func IsInvalidStageKey(err error) bool {
	return errors.Is(err, ErrInvalidStageKey)
}

func IsSameStageColumns(err error) bool {
	return errors.Is(err, ErrSameStageColumns)
}

func IsNoSimulation(err error) bool {
	return errors.Is(err, ErrNoSimulation)
}

func IsNoEdits(err error) bool {
	return errors.Is(err, ErrNoEdits)
}

func IsUnknownAssignment(err error) bool {
	return errors.Is(err, ErrUnknownAssignment)
}

func IsSimulationNotFound(err error) bool {
	return errors.Is(err, ErrSimulationNotFound)
}

func IsSimulationNameEmpty(err error) bool {
	return errors.Is(err, ErrSimulationNameEmpty)
}

func IsInvalidExportFilename(err error) bool {
	return errors.Is(err, ErrInvalidExportFilename)
}

func IsInvalidExportView(err error) bool {
	return errors.Is(err, ErrInvalidExportView)
}

func IsPersistenceUnavailable(err error) bool {
	return errors.Is(err, ErrPersistenceUnavailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
