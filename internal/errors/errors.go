// Package errors defines domain-level errors used throughout the application.
// Callers should compare against these values with errors.Is, as they are always wrapped with context.
//
// NOTE: Important for developers
// When adding a new error here, consider how it should be handled when returned from the network server's
// HTTP API (see mapError in internal/api/errors.go). Unmapped errors default to HTTP 500.
package errors

import (
	"errors"
)

var (
	// ErrValidation indicates that a server descriptor is malformed or incomplete.
	// e.g. an empty name, a stdio server without a launch command, or a network server without host/port.
	// Not retried: it signals a usage mistake rather than a transient condition.
	ErrValidation = errors.New("invalid server descriptor")

	// ErrNotFound indicates that a named server is not present in the registry.
	ErrNotFound = errors.New("server not found")

	// ErrConfig indicates caller-level misconfiguration.
	// e.g. none of the filesystem search paths could be resolved to a readable directory.
	ErrConfig = errors.New("invalid configuration")

	// ErrDiscovery indicates that every requested discovery channel failed to initialize.
	// The wrapped error joins the cause reported by each channel.
	ErrDiscovery = errors.New("discovery failed")

	// ErrLockUnavailable indicates that the registry lock could not be acquired after the configured
	// number of attempts.
	ErrLockUnavailable = errors.New("registry lock unavailable")

	// ErrToolCallFailed indicates that a tool handler reported a failure while handling a call.
	ErrToolCallFailed = errors.New("tool call failed")
)
