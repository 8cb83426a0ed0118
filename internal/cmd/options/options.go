package options

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/discovery"
	"github.com/mozilla-ai/quickmcp/internal/info"
)

// ProbeFunc asks a server for its info document.
type ProbeFunc func(ctx context.Context, command []string, dir string, timeout time.Duration) (info.Document, error)

type CmdOption func(*CmdOptions) error

// CmdOptions holds the collaborators commands use, so tests can replace them.
type CmdOptions struct {
	// RegistryPath overrides the registry file selected by the global flag.
	RegistryPath string

	// DiscoveryOptions configure the discoverer used by discover and export.
	DiscoveryOptions []discovery.Option

	// AnnouncerOptions configure the announcer started by announce.
	AnnouncerOptions []announce.AnnouncerOption

	// Probe runs a server with the info flag.
	Probe ProbeFunc

	// Clock is the reference time for staleness.
	Clock func() time.Time
}

func defaultOptions() CmdOptions {
	return CmdOptions{
		Probe: info.Probe,
		Clock: func() time.Time { return time.Now().UTC() },
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithRegistryPath(path string) CmdOption {
	return func(o *CmdOptions) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("registry path cannot be empty")
		}
		o.RegistryPath = path
		return nil
	}
}

func WithDiscoveryOptions(opts ...discovery.Option) CmdOption {
	return func(o *CmdOptions) error {
		o.DiscoveryOptions = append(o.DiscoveryOptions, opts...)
		return nil
	}
}

func WithAnnouncerOptions(opts ...announce.AnnouncerOption) CmdOption {
	return func(o *CmdOptions) error {
		o.AnnouncerOptions = append(o.AnnouncerOptions, opts...)
		return nil
	}
}

func WithProbe(fn ProbeFunc) CmdOption {
	return func(o *CmdOptions) error {
		if fn == nil {
			return fmt.Errorf("probe function cannot be nil")
		}
		o.Probe = fn
		return nil
	}
}

func WithClock(clock func() time.Time) CmdOption {
	return func(o *CmdOptions) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = clock
		return nil
	}
}
