// Package registry persists server descriptors in a single JSON document keyed by server name.
// Every mutation is a read-modify-write cycle performed under an advisory file lock, and the new
// document replaces the old one with an atomic rename, so concurrent readers and writers on the
// same host never observe a partially written registry.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/files"
)

// document is the in-memory form of the registry file: insertion ordered, keyed by server name.
type document = orderedmap.OrderedMap[string, descriptor.Descriptor]

// errLocked is returned by a single lock attempt when another holder owns the lock.
var errLocked = fmt.Errorf("lock is held by another process")

// Store is a file backed registry of server descriptors.
// A Store holds no state between calls other than its configuration, every read goes to disk.
type Store struct {
	logger hclog.Logger
	opts   Options
}

// Open returns a Store for the registry file described by opts.
// The parent directory of the registry file is created when it does not exist,
// the registry file itself is only created by the first registration.
func Open(logger hclog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	if err := files.EnsureDir(filepath.Dir(options.Path)); err != nil {
		return nil, fmt.Errorf("%w: registry directory: %w", errors.ErrConfig, err)
	}

	return &Store{
		logger: logger.Named("registry"),
		opts:   options,
	}, nil
}

// Path returns the location of the registry file.
func (s *Store) Path() string {
	return s.opts.Path
}

// Register validates d, stamps its registration time when absent, and stores it under d.Name.
// An existing entry with the same name is replaced wholesale, fields are never merged.
// The stored descriptor is returned.
func (s *Store) Register(ctx context.Context, d descriptor.Descriptor) (descriptor.Descriptor, error) {
	if err := d.Validate(); err != nil {
		return descriptor.Descriptor{}, err
	}

	stored := d.Clone()
	stored.Name = strings.TrimSpace(stored.Name)
	stored.Source = ""
	if stored.RegisteredAt == nil {
		now := s.opts.Clock()
		stored.RegisteredAt = &now
	}

	err := s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}

		if _, replaced := doc.Set(stored.Name, stored); replaced {
			s.logger.Debug("Replacing registered server", "name", stored.Name)
		}

		return s.write(doc)
	})
	if err != nil {
		return descriptor.Descriptor{}, err
	}

	s.logger.Info("Registered server", "name", stored.Name, "transport", stored.Transport)

	return stored.Clone(), nil
}

// Unregister removes the entry for name.
// It reports whether an entry was removed, when none existed the registry file is left untouched.
func (s *Store) Unregister(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: name cannot be empty", errors.ErrValidation)
	}

	removed := false
	err := s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}

		if _, ok := doc.Delete(name); !ok {
			return nil
		}
		removed = true

		return s.write(doc)
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.logger.Info("Unregistered server", "name", name)
	}

	return removed, nil
}

// Get returns the registered descriptor for name, or an error wrapping errors.ErrNotFound.
func (s *Store) Get(name string) (descriptor.Descriptor, error) {
	doc, err := s.read()
	if err != nil {
		return descriptor.Descriptor{}, err
	}

	d, ok := doc.Get(strings.TrimSpace(name))
	if !ok {
		return descriptor.Descriptor{}, fmt.Errorf("%w: '%s'", errors.ErrNotFound, name)
	}

	return d, nil
}

// List returns every registered descriptor in registration order.
// The registry file is read once when List is called, the sequence iterates that snapshot.
func (s *Store) List() (iter.Seq[descriptor.Descriptor], error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	return func(yield func(descriptor.Descriptor) bool) {
		for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Value.Clone()) {
				return
			}
		}
	}, nil
}

// Names returns the registered server names in registration order.
func (s *Store) Names() ([]string, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, doc.Len())
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}

	return names, nil
}

// read loads the registry document, a missing or empty file is an empty registry.
func (s *Store) read() (*document, error) {
	doc := orderedmap.New[string, descriptor.Descriptor]()

	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read registry '%s': %w", s.opts.Path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: registry '%s' is not valid JSON: %w", errors.ErrConfig, s.opts.Path, err)
	}

	// The key is authoritative for the name.
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Name != pair.Key {
			d := pair.Value
			d.Name = pair.Key
			pair.Value = d
		}
	}

	return doc, nil
}

// write serializes doc and atomically replaces the registry file.
func (s *Store) write(doc *document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format registry: %w", err)
	}
	buf.WriteByte('\n')

	return files.WriteFileAtomic(s.opts.Path, buf.Bytes(), files.RegularFile)
}

// withLock runs fn while holding the advisory lock beside the registry file.
// Acquisition is retried with exponential backoff, exhaustion yields errors.ErrLockUnavailable.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	lockPath := s.opts.Path + lockSuffix
	lock := flock.New(lockPath)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.LockBackoff
	bo.MaxInterval = s.opts.LockMaxBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := lock.TryLock()
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			s.logger.Trace("Registry lock busy, retrying", "path", lockPath)
			return struct{}{}, errLocked
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.opts.LockAttempts))
	if err != nil {
		return fmt.Errorf("%w: '%s' after %d attempts: %w", errors.ErrLockUnavailable, lockPath, s.opts.LockAttempts, err)
	}

	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release registry lock", "path", lockPath, "error", err)
		}
	}()

	return fn()
}
