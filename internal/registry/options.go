package registry

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mozilla-ai/quickmcp/internal/files"
)

const (
	// DefaultFileName is the name of the registry file inside the user config directory.
	DefaultFileName = "servers.json"

	// lockSuffix is appended to the registry path to name its advisory lock file.
	lockSuffix = ".lock"
)

// Option defines a functional option for configuring a Store.
type Option func(*Options) error

// Options contains optional configuration for the registry Store.
type Options struct {
	// Path to the registry JSON file.
	Path string

	// LockAttempts is the maximum number of times the advisory lock is tried before giving up.
	LockAttempts uint

	// LockBackoff is the initial delay between lock attempts, it grows exponentially.
	LockBackoff time.Duration

	// LockMaxBackoff caps the delay between lock attempts.
	LockMaxBackoff time.Duration

	// Clock returns the time used to stamp registrations.
	Clock func() time.Time
}

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options, err := defaultOptions()
	if err != nil {
		return Options{}, err
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithPath configures the location of the registry file.
func WithPath(path string) Option {
	return func(o *Options) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("registry path cannot be empty")
		}
		o.Path = filepath.Clean(path)
		return nil
	}
}

// WithLockAttempts configures how many times the registry lock is attempted.
func WithLockAttempts(attempts uint) Option {
	return func(o *Options) error {
		if attempts == 0 {
			return fmt.Errorf("lock attempts must be positive, got %d", attempts)
		}
		o.LockAttempts = attempts
		return nil
	}
}

// WithLockBackoff configures the initial and maximum delay between lock attempts.
func WithLockBackoff(initial time.Duration, maximum time.Duration) Option {
	return func(o *Options) error {
		if initial <= 0 {
			return fmt.Errorf("lock backoff must be positive, got %v", initial)
		}
		if maximum < initial {
			return fmt.Errorf("lock max backoff (%v) must not be less than initial backoff (%v)", maximum, initial)
		}
		o.LockBackoff = initial
		o.LockMaxBackoff = maximum
		return nil
	}
}

// WithClock configures the time source used to stamp registrations.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = clock
		return nil
	}
}

// DefaultPath returns the per-user registry file location, e.g. ~/.config/quickmcp/servers.json.
func DefaultPath() (string, error) {
	dir, err := files.ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, DefaultFileName), nil
}

// DefaultLockAttempts is the default number of attempts made to acquire the registry lock.
func DefaultLockAttempts() uint {
	return 10
}

// DefaultLockBackoff is the default initial delay between lock attempts.
func DefaultLockBackoff() time.Duration {
	return 25 * time.Millisecond
}

// DefaultLockMaxBackoff is the default cap on the delay between lock attempts.
func DefaultLockMaxBackoff() time.Duration {
	return 500 * time.Millisecond
}

func defaultOptions() (Options, error) {
	path, err := DefaultPath()
	if err != nil {
		return Options{}, err
	}

	return Options{
		Path:           path,
		LockAttempts:   DefaultLockAttempts(),
		LockBackoff:    DefaultLockBackoff(),
		LockMaxBackoff: DefaultLockMaxBackoff(),
		Clock: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}
