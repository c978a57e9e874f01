package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/joseph-ayodele/claims-tracker/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the taxonomy sentinel for e.Code.
func (e *AppError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// Error codes
const (
	CodeConfig    = "CONFIG_ERROR"
	CodeExtract   = "EXTRACTION_ERROR"
	CodeUpstream  = "UPSTREAM_PROVIDER_ERROR"
	CodeScoring   = "SCORING_ERROR"
	CodeInvalid   = "INVALID_INPUT"
	CodeInternal  = "INTERNAL_ERROR"
	CodeRecording = "RECORDING_ERROR"
)

// Common application errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrDatabase         = errors.New("database error")
	ErrConfiguration    = errors.New("configuration error")
	ErrExtraction       = errors.New("extraction error")
	ErrUpstreamProvider = errors.New("upstream provider error")
	ErrScoring          = errors.New("scoring error")
)

var codeSentinels = map[string]error{
	CodeConfig:    ErrConfiguration,
	CodeExtract:   ErrExtraction,
	CodeUpstream:  ErrUpstreamProvider,
	CodeScoring:   ErrScoring,
	CodeInvalid:   ErrInvalidInput,
	CodeInternal:  ErrInternal,
	CodeRecording: ErrDatabase,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewExtractionError reports an unreadable, unsupported or empty document.
func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtract, message, cause)
}

// NewScoringError reports a scorer start, exit or payload failure.
func NewScoringError(message string, cause error) *AppError {
	return NewAppError(CodeScoring, message, cause)
}

// NewConfigError reports missing or malformed configuration.
func NewConfigError(message string) *AppError {
	return NewAppError(CodeConfig, message, nil)
}

// NewUpstreamError reports that every provider attempt failed.
func NewUpstreamError(message string, cause error) *AppError {
	return NewAppError(CodeUpstream, message, cause)
}

// StageError tags a pipeline failure with the step that was running.
type StageError struct {
	Step constants.Step
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Step, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StepOf returns the failed step carried by err, if any.
func StepOf(err error) (constants.Step, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}

// FailureClass tells a caller whether a failure came from an external dependency.
type FailureClass string

const (
	FailureNone     FailureClass = ""
	FailureExternal FailureClass = "external"
	FailureInternal FailureClass = "internal"
	FailureInput    FailureClass = "input"
)

// Classify maps an error onto the caller-facing failure class.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrUpstreamProvider), errors.Is(err, ErrScoring):
		return FailureExternal
	case errors.Is(err, ErrInvalidInput):
		return FailureInput
	default:
		return FailureInternal
	}
}

// HTTPStatus is the status an HTTP boundary should answer with for err.
func HTTPStatus(err error) int {
	switch Classify(err) {
	case FailureNone:
		return http.StatusOK
	case FailureExternal:
		return http.StatusBadGateway
	case FailureInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
