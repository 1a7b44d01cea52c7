// Package drafterrs defines the typed error taxonomy shared by every draft
// engine operation. App layers return these; the transport edge maps codes to
// HTTP statuses.
package drafterrs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an engine failure.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeForbidden          Code = "FORBIDDEN"
	CodeConflict           Code = "CONFLICT"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeNotFound           Code = "NOT_FOUND"
)

// Error is a typed draft engine error. Conflict errors carry enough turn
// context for a client to reconcile its view without a full reload.
type Error struct {
	Code Code
	msg  string

	// Turn context, populated on turn/state conflicts.
	CurrentOverall int   `json:"current_overall,omitempty"`
	OnClockTeamID  int64 `json:"on_clock_team_id,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

// WithTurnContext attaches the authoritative turn pointer to the error.
func (e *Error) WithTurnContext(currentOverall int, onClockTeamID int64) *Error {
	e.CurrentOverall = currentOverall
	e.OnClockTeamID = onClockTeamID
	return e
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return newError(CodeBadRequest, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(CodeForbidden, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(CodeConflict, format, args...)
}

func PreconditionFailed(format string, args ...any) *Error {
	return newError(CodePreconditionFailed, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

// CodeOf extracts the taxonomy code from err, unwrapping as needed. Unknown
// errors report an empty code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a taxonomy code to its HTTP status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
