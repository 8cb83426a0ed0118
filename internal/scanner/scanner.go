// Package scanner discovers candidate server scripts by matching their contents against known
// server construction signatures. Candidate files are only ever read, never imported or executed.
package scanner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/files"
)

// Registrar persists descriptors, satisfied by *registry.Store.
type Registrar interface {
	Register(ctx context.Context, d descriptor.Descriptor) (descriptor.Descriptor, error)
}

// Scanner walks search roots looking for server scripts.
type Scanner struct {
	logger hclog.Logger
	opts   Options
}

// New returns a Scanner configured by opts.
func New(logger hclog.Logger, opts ...Option) (*Scanner, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		logger: logger.Named("scanner"),
		opts:   options,
	}, nil
}

// Roots returns the search roots that resolve to readable directories, deduplicated, in search order.
func (s *Scanner) Roots() []string {
	var roots []string
	for _, p := range slices.Concat(s.opts.SearchPaths, s.opts.ExtraPaths) {
		abs, err := filepath.Abs(p)
		if err != nil {
			s.logger.Debug("Skipping unresolvable search path", "path", p, "error", err)
			continue
		}
		if !files.IsReadableDir(abs) {
			s.logger.Debug("Skipping unreadable search path", "path", abs)
			continue
		}
		if slices.Contains(roots, abs) {
			continue
		}
		roots = append(roots, abs)
	}

	return roots
}

// Scan returns a lazy sequence of ephemeral descriptors, one per matching script.
// Names are unique within one scan: a script whose name was already produced gets its directory
// name appended ("server-beta"), then a counter if that is taken too.
// Unreadable files and directories are skipped. An error wrapping errors.ErrConfig is returned when
// no search path resolves to a readable directory.
// Iteration stops early when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (iter.Seq[descriptor.Descriptor], error) {
	roots := s.Roots()
	if len(roots) == 0 {
		return nil, fmt.Errorf(
			"%w: none of the search paths is a readable directory: %s",
			errors.ErrConfig,
			strings.Join(slices.Concat(s.opts.SearchPaths, s.opts.ExtraPaths), ", "),
		)
	}

	return func(yield func(descriptor.Descriptor) bool) {
		seen := map[string]struct{}{}
		names := map[string]struct{}{}
		for _, root := range roots {
			if !s.walk(ctx, root, seen, names, yield) {
				return
			}
		}
	}, nil
}

// walk scans a single root, returning false when iteration should stop.
func (s *Scanner) walk(
	ctx context.Context,
	root string,
	seen map[string]struct{},
	names map[string]struct{},
	yield func(descriptor.Descriptor) bool,
) bool {
	keepGoing := true

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			keepGoing = false
			return fs.SkipAll
		}
		if err != nil {
			s.logger.Debug("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && depth(root, path) > s.opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		candidate, ok := s.inspect(path)
		if !ok {
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			resolved = path
		}
		if _, dup := seen[resolved]; dup {
			return nil
		}
		seen[resolved] = struct{}{}

		candidate.Name = uniqueName(candidate, names)
		if !yield(candidate) {
			keepGoing = false
			return fs.SkipAll
		}

		return nil
	})

	return keepGoing
}

// inspect reads path and builds a descriptor when the file carries a server marker.
func (s *Scanner) inspect(path string) (descriptor.Descriptor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	launcher, supported := s.opts.Launchers[ext]
	if !supported {
		return descriptor.Descriptor{}, false
	}

	info, err := os.Stat(path) // Follows symlinks, broken links fail here.
	if err != nil {
		s.logger.Debug("Skipping unresolvable file", "path", path, "error", err)
		return descriptor.Descriptor{}, false
	}
	if !info.Mode().IsRegular() {
		return descriptor.Descriptor{}, false
	}
	if info.Size() > s.opts.MaxFileSize {
		s.logger.Trace("Skipping oversized file", "path", path, "size", info.Size())
		return descriptor.Descriptor{}, false
	}

	content, err := readLimited(path, s.opts.MaxFileSize)
	if err != nil {
		s.logger.Debug("Skipping unreadable file", "path", path, "error", err)
		return descriptor.Descriptor{}, false
	}

	marker, name, matched := s.match(content)
	if !matched {
		return descriptor.Descriptor{}, false
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	s.logger.Debug("Discovered server script", "path", path, "name", name, "marker", marker.Label)

	return descriptor.Descriptor{
		Name:        name,
		Command:     append(slices.Clone(launcher), path),
		WorkingDir:  filepath.Dir(path),
		Description: fmt.Sprintf("%s server discovered at %s", marker.Label, path),
		Transport:   descriptor.TransportStdio,
		Source:      descriptor.SourceFilesystem,
	}, true
}

// match returns the first marker found in content, with the server name it captured, if any.
func (s *Scanner) match(content []byte) (Marker, string, bool) {
	for _, m := range s.opts.Markers {
		loc := m.Pattern.FindSubmatch(content)
		if loc == nil {
			continue
		}

		name := ""
		if idx := m.Pattern.SubexpIndex("name"); idx >= 0 && idx < len(loc) {
			name = strings.TrimSpace(string(loc[idx]))
		}

		return m, name, true
	}

	return Marker{}, "", false
}

// AutoRegister registers every descriptor in seq with reg.
// It returns the number of successful registrations and the joined errors of the failures.
func AutoRegister(ctx context.Context, reg Registrar, seq iter.Seq[descriptor.Descriptor]) (int, error) {
	var (
		count int
		errs  []error
	)

	for d := range seq {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := reg.Register(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("failed to register '%s': %w", d.Name, err))
			continue
		}
		count++
	}

	return count, stderrors.Join(errs...)
}

// uniqueName returns d.Name, or a suffixed variant when the name is already in taken, and records it.
func uniqueName(d descriptor.Descriptor, taken map[string]struct{}) string {
	name := d.Name
	if _, dup := taken[name]; dup {
		name = d.Name + "-" + filepath.Base(d.WorkingDir)
		for i := 2; ; i++ {
			if _, dup := taken[name]; !dup {
				break
			}
			name = fmt.Sprintf("%s-%s-%d", d.Name, filepath.Base(d.WorkingDir), i)
		}
	}
	taken[name] = struct{}{}

	return name
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return io.ReadAll(io.LimitReader(f, limit))
}

// depth is the number of directory levels path sits below root.
func depth(root string, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}

	return len(strings.Split(rel, string(filepath.Separator)))
}
