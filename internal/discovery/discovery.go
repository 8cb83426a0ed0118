// Package discovery merges the registry, a filesystem scan and a network listen window into a single
// view of known servers.
package discovery

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/scanner"
)

// Registry is the subset of the registry store discovery depends on.
type Registry interface {
	List() (iter.Seq[descriptor.Descriptor], error)
	Register(ctx context.Context, d descriptor.Descriptor) (descriptor.Descriptor, error)
}

// Request selects the channels used by a single Discover call.
type Request struct {
	// Filesystem enables the filesystem scan.
	Filesystem bool

	// Network enables listening for announcements.
	Network bool

	// Timeout bounds the network listen window, zero returns immediately.
	Timeout time.Duration

	// SearchPaths are scanned in addition to the default roots.
	SearchPaths []string

	// AutoRegister persists filesystem candidates whose names are not already registered.
	AutoRegister bool
}

// Result is the merged outcome of a Discover call.
type Result struct {
	// Servers lists registry entries first, in registration order, followed by filesystem candidates and
	// network servers whose names are not registered.
	Servers []descriptor.Descriptor

	// RawAnnouncements is the number of datagrams received during the listen window.
	RawAnnouncements int

	// AutoRegistered is the number of filesystem candidates registered by this call.
	AutoRegistered int

	// Warnings describes channels that degraded to an empty contribution.
	Warnings []string
}

// Discoverer runs discovery against a registry.
type Discoverer struct {
	logger   hclog.Logger
	registry Registry
	opts     Options
}

// New returns a Discoverer reading from and, when requested, auto-registering into registry.
func New(logger hclog.Logger, registry Registry, opts ...Option) (*Discoverer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: registry cannot be nil", errors.ErrConfig)
	}

	options, err := NewOptions(logger, opts...)
	if err != nil {
		return nil, err
	}

	return &Discoverer{
		logger:   logger.Named("discovery"),
		registry: registry,
		opts:     options,
	}, nil
}

// Discover runs the requested channels concurrently and merges their results with the registry.
//
// A channel that fails degrades to an empty contribution and a warning. Only when every requested
// channel fails does Discover return an error, wrapping errors.ErrDiscovery and joining each cause.
func (d *Discoverer) Discover(ctx context.Context, req Request) (Result, error) {
	if req.Timeout < 0 {
		return Result{}, fmt.Errorf("%w: timeout cannot be negative, got %v", errors.ErrConfig, req.Timeout)
	}

	var (
		g          errgroup.Group
		fsFound    []descriptor.Descriptor
		fsErr      error
		collection announce.Collection
		netErr     error
	)

	if req.Filesystem {
		g.Go(func() error {
			seq, err := d.opts.Scan(ctx, req.SearchPaths)
			if err != nil {
				fsErr = err
				return nil
			}
			fsFound = slices.Collect(seq)
			return nil
		})
	}

	if req.Network {
		g.Go(func() error {
			collection, netErr = d.opts.Listen(ctx, req.Timeout)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{RawAnnouncements: collection.Datagrams}

	var failures []error
	if fsErr != nil {
		d.logger.Warn("Filesystem scan failed", "error", fsErr)
		res.Warnings = append(res.Warnings, fmt.Sprintf("filesystem scan failed: %v", fsErr))
		failures = append(failures, fmt.Errorf("filesystem: %w", fsErr))
	}
	if netErr != nil {
		d.logger.Warn("Network discovery failed", "error", netErr)
		res.Warnings = append(res.Warnings, fmt.Sprintf("network discovery failed: %v", netErr))
		failures = append(failures, fmt.Errorf("network: %w", netErr))
	}

	requested := 0
	if req.Filesystem {
		requested++
	}
	if req.Network {
		requested++
	}
	if requested > 0 && len(failures) == requested {
		return Result{}, fmt.Errorf("%w: %w", errors.ErrDiscovery, stderrors.Join(failures...))
	}

	if req.AutoRegister && len(fsFound) > 0 {
		n, err := d.autoRegister(ctx, fsFound)
		res.AutoRegistered = n
		if err != nil {
			d.logger.Warn("Auto-registration incomplete", "registered", n, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("auto-registration incomplete: %v", err))
		}
	}

	var registered []descriptor.Descriptor
	if seq, err := d.registry.List(); err != nil {
		d.logger.Warn("Failed to read registry", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("registry unavailable: %v", err))
	} else {
		registered = slices.Collect(seq)
	}

	res.Servers = Merge(registered, fsFound, collection.Servers)

	d.logger.Debug(
		"Discovery complete",
		"servers", len(res.Servers),
		"registry", len(registered),
		"filesystem", len(fsFound),
		"network", len(collection.Servers),
		"datagrams", collection.Datagrams,
	)

	return res, nil
}

// autoRegister registers the candidates whose names are free.
// An explicit registration is never replaced by a scan result.
func (d *Discoverer) autoRegister(ctx context.Context, candidates []descriptor.Descriptor) (int, error) {
	seq, err := d.registry.List()
	if err != nil {
		return 0, fmt.Errorf("failed to read registry: %w", err)
	}

	taken := map[string]struct{}{}
	for r := range seq {
		taken[r.Name] = struct{}{}
	}

	fresh := slices.DeleteFunc(slices.Clone(candidates), func(c descriptor.Descriptor) bool {
		_, registered := taken[c.Name]
		if registered {
			d.logger.Debug("Not auto-registering, name already registered", "name", c.Name, "command", c.Command)
		}
		return registered
	})

	return scanner.AutoRegister(ctx, d.registry, slices.Values(fresh))
}

// Merge combines the three discovery channels.
// Registry entries are authoritative: a filesystem or network entry whose name is registered is dropped.
// Network entries are deduplicated by (name, host, port). Every returned descriptor carries its Source.
func Merge(registered []descriptor.Descriptor, filesystem []descriptor.Descriptor, network []descriptor.Descriptor) []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, 0, len(registered)+len(filesystem)+len(network))
	names := make(map[string]struct{}, len(registered))

	for _, r := range registered {
		r.Source = descriptor.SourceRegistry
		names[r.Name] = struct{}{}
		out = append(out, r)
	}

	for _, f := range filesystem {
		if _, taken := names[f.Name]; taken {
			continue
		}
		f.Source = descriptor.SourceFilesystem
		out = append(out, f)
	}

	for _, n := range announce.Merge(network) {
		if _, taken := names[n.Name]; taken {
			continue
		}
		n.Source = descriptor.SourceNetwork
		out = append(out, n)
	}

	return out
}
