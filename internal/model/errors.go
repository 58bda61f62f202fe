package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for specific failure types
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeTaskNotFound  = "TASK_NOT_FOUND"
	ErrCodeCycle         = "CYCLE_DETECTED"
	ErrCodeProjectSync   = "PROJECT_SYNC_FAILED"
	ErrCodeFilter        = "FILTER_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeCache         = "CACHE_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// EngineError is the structured error type the engine hands to HTTP/CLI
// layers. Expected conditions (missing task, cycle) carry a machine-readable
// code so callers can pass them through unchanged instead of translating
// exceptions.
type EngineError struct {
	Code    string // machine-readable code (e.g. ErrCodeTaskNotFound)
	Stage   string // where it occurred (e.g. "cpa", "eta", "calendar")
	Message string // human-readable message
	Cause   error  // underlying error, if any

	// Cycles holds the offending cycles for ErrCodeCycle, each as an id
	// path of the form [T, U, T].
	Cycles [][]string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause, allowing error chaining.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new EngineError.
func NewError(code, stage, message string, cause error) *EngineError {
	return &EngineError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// Specific error constructors

func NewValidationError(stage, message string, cause error) *EngineError {
	return NewError(ErrCodeValidation, stage, message, cause)
}

func NewTaskNotFoundError(stage, taskID string) *EngineError {
	return NewError(ErrCodeTaskNotFound, stage, fmt.Sprintf("task '%s' not found", taskID), nil)
}

func NewCycleError(stage string, cycles [][]string) *EngineError {
	parts := make([]string, 0, len(cycles))
	for _, c := range cycles {
		parts = append(parts, strings.Join(c, " -> "))
	}
	err := NewError(ErrCodeCycle, stage, fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, "; ")), nil)
	err.Cycles = cycles
	return err
}

func NewProjectSyncError(projectKey string, cause error) *EngineError {
	return NewError(ErrCodeProjectSync, "sync", fmt.Sprintf("project sync failed for '%s'", projectKey), cause)
}

func NewFilterError(expr string, cause error) *EngineError {
	return NewError(ErrCodeFilter, "filter", fmt.Sprintf("backlog filter '%s' failed", expr), cause)
}

func NewConfigurationError(message string, cause error) *EngineError {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}

func NewCacheError(stage, operation string, cause error) *EngineError {
	return NewError(ErrCodeCache, stage, fmt.Sprintf("cache operation '%s' failed", operation), cause)
}

func NewInternalError(stage, message string, cause error) *EngineError {
	return NewError(ErrCodeInternal, stage, message, cause)
}

// IsEngineError reports whether err is (or wraps) an EngineError.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

// CodeOf extracts the engine error code, or "" for foreign errors.
func CodeOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// CyclesFrom extracts the cycle list from a cycle-detection error.
func CyclesFrom(err error) ([][]string, bool) {
	var ee *EngineError
	if errors.As(err, &ee) && ee.Code == ErrCodeCycle {
		return ee.Cycles, true
	}
	return nil, false
}
