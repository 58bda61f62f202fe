package sprintscale

import "github.com/quillforge/sprintscale/internal/model"

// EngineError is the structured error type the engine hands to HTTP/CLI
// layers. Expected conditions (missing task, cycle) carry a machine-readable
// code so callers can pass them through unchanged.
type EngineError = model.EngineError

// Error codes for specific failure types
const (
	ErrCodeValidation    = model.ErrCodeValidation
	ErrCodeTaskNotFound  = model.ErrCodeTaskNotFound
	ErrCodeCycle         = model.ErrCodeCycle
	ErrCodeProjectSync   = model.ErrCodeProjectSync
	ErrCodeFilter        = model.ErrCodeFilter
	ErrCodeConfiguration = model.ErrCodeConfiguration
	ErrCodeCache         = model.ErrCodeCache
	ErrCodeInternal      = model.ErrCodeInternal
)

// NewError creates a new EngineError.
func NewError(code, stage, message string, cause error) *EngineError {
	return model.NewError(code, stage, message, cause)
}

func NewValidationError(stage, message string, cause error) *EngineError {
	return model.NewValidationError(stage, message, cause)
}

func NewTaskNotFoundError(stage, taskID string) *EngineError {
	return model.NewTaskNotFoundError(stage, taskID)
}

func NewCycleError(stage string, cycles [][]string) *EngineError {
	return model.NewCycleError(stage, cycles)
}

func NewProjectSyncError(projectKey string, cause error) *EngineError {
	return model.NewProjectSyncError(projectKey, cause)
}

func NewFilterError(expr string, cause error) *EngineError {
	return model.NewFilterError(expr, cause)
}

func NewConfigurationError(message string, cause error) *EngineError {
	return model.NewConfigurationError(message, cause)
}

func NewCacheError(stage, operation string, cause error) *EngineError {
	return model.NewCacheError(stage, operation, cause)
}

func NewInternalError(stage, message string, cause error) *EngineError {
	return model.NewInternalError(stage, message, cause)
}

// IsEngineError reports whether err is (or wraps) an EngineError.
func IsEngineError(err error) bool {
	return model.IsEngineError(err)
}

// CodeOf extracts the engine error code, or "" for foreign errors.
func CodeOf(err error) string {
	return model.CodeOf(err)
}

// CyclesFrom extracts the cycle list from a cycle-detection error.
func CyclesFrom(err error) ([][]string, bool) {
	return model.CyclesFrom(err)
}
