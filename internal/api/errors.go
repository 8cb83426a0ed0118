package api

import (
	stderrors "errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/quickmcp/internal/errors"
)

// MapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors are converted to HTTP responses.
// When adding new errors to internal/errors/errors.go, add them here to prevent them from falling
// through to the default case which returns HTTP 500.
//
// Mapping guidelines:
//   - 400: Client errors (bad input, invalid requests)
//   - 404: Resource not found errors
//   - 422: A tool handler reported a failure
//   - 503: A shared resource is temporarily unavailable
//   - 500: Unexpected internal errors (default case)
func MapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stderrors.Is(err, errors.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case stderrors.Is(err, errors.ErrConfig):
		return huma.Error400BadRequest(err.Error())
	case stderrors.Is(err, errors.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case stderrors.Is(err, errors.ErrToolCallFailed):
		logger.Warn("Tool call failed", "error", err)
		return huma.Error422UnprocessableEntity(err.Error())
	case stderrors.Is(err, errors.ErrLockUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		logger.Error("Unexpected error handling API request", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// ErrorHandler wraps error handling for the application when converting to API friendly errors.
// Errors produced by huma itself (e.g. request validation details) keep the status huma chose,
// domain errors are resolved through MapError.
func ErrorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		switch {
		case len(errs) == 0:
			// No errors provided; return a generic error.
			return huma.NewError(status, msg)
		case !isDomainError(errs...):
			return huma.NewError(status, msg, errs...)
		case len(errs) == 1:
			// Single error; map it directly.
			return MapError(logger, errs[0])
		default:
			// Multiple errors; join them and map.
			return MapError(logger, stderrors.Join(errs...))
		}
	}
}

// isDomainError reports whether any of errs wraps an error defined in internal/errors.
func isDomainError(errs ...error) bool {
	err := stderrors.Join(errs...)
	for _, target := range []error{
		errors.ErrValidation,
		errors.ErrConfig,
		errors.ErrNotFound,
		errors.ErrToolCallFailed,
		errors.ErrLockUnavailable,
		errors.ErrDiscovery,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}

	return false
}
