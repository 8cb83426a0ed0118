package discovery

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/scanner"
)

// ScanFunc scans the filesystem, searching extraPaths in addition to the default roots.
type ScanFunc func(ctx context.Context, extraPaths []string) (iter.Seq[descriptor.Descriptor], error)

// ListenFunc collects network announcements for timeout.
type ListenFunc func(ctx context.Context, timeout time.Duration) (announce.Collection, error)

// Option defines a functional option for configuring a Discoverer.
type Option func(*Options) error

// Options contains optional configuration for a Discoverer.
type Options struct {
	Scan   ScanFunc
	Listen ListenFunc
}

// NewOptions creates Options with optional configurations applied.
// The logger is handed to the default scanner and listener.
func NewOptions(logger hclog.Logger, opts ...Option) (Options, error) {
	options := Options{
		Scan:   defaultScan(logger),
		Listen: defaultListen(logger),
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

// WithScanFunc replaces the filesystem channel.
func WithScanFunc(fn ScanFunc) Option {
	return func(o *Options) error {
		if fn == nil {
			return fmt.Errorf("scan function cannot be nil")
		}
		o.Scan = fn
		return nil
	}
}

// WithListenFunc replaces the network channel.
func WithListenFunc(fn ListenFunc) Option {
	return func(o *Options) error {
		if fn == nil {
			return fmt.Errorf("listen function cannot be nil")
		}
		o.Listen = fn
		return nil
	}
}

// WithScannerOptions configures the default filesystem channel.
func WithScannerOptions(logger hclog.Logger, opts ...scanner.Option) Option {
	return func(o *Options) error {
		o.Scan = scanWith(logger, opts...)
		return nil
	}
}

// WithListenOptions configures the default network channel.
func WithListenOptions(logger hclog.Logger, opts ...announce.ListenOption) Option {
	return func(o *Options) error {
		o.Listen = func(ctx context.Context, timeout time.Duration) (announce.Collection, error) {
			return announce.Listen(ctx, logger, timeout, opts...)
		}
		return nil
	}
}

func defaultScan(logger hclog.Logger) ScanFunc {
	return scanWith(logger)
}

func scanWith(logger hclog.Logger, opts ...scanner.Option) ScanFunc {
	return func(ctx context.Context, extraPaths []string) (iter.Seq[descriptor.Descriptor], error) {
		all := slices.Concat(opts, []scanner.Option{scanner.WithExtraPaths(extraPaths...)})
		s, err := scanner.New(logger, all...)
		if err != nil {
			return nil, err
		}
		return s.Scan(ctx)
	}
}

func defaultListen(logger hclog.Logger) ListenFunc {
	return func(ctx context.Context, timeout time.Duration) (announce.Collection, error) {
		return announce.Listen(ctx, logger, timeout)
	}
}
