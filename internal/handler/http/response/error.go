package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrEmployeeRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, auth.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")

	// Attendance transition errors
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		Conflict(w, "ALREADY_CLOCKED_IN", err.Error())
	case errors.Is(err, attendance.ErrNotClockedIn):
		Conflict(w, "NOT_CLOCKED_IN", err.Error())
	case errors.Is(err, attendance.ErrAlreadyOnBreak):
		Conflict(w, "ALREADY_ON_BREAK", err.Error())
	case errors.Is(err, attendance.ErrNotOnBreak):
		Conflict(w, "NOT_ON_BREAK", err.Error())
	case errors.Is(err, attendance.ErrConcurrencyConflict):
		Conflict(w, "CONCURRENCY_CONFLICT", err.Error())
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
