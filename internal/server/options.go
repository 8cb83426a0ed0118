package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/quickmcp/internal/announce"
)

// Option configures a Server.
type Option func(*Options) error

// Options holds the optional settings of a Server.
type Options struct {
	Logger      hclog.Logger
	Description string

	// ToolPrefix is advertised in the info document for consumers that aggregate tools.
	ToolPrefix string

	// Announce enables multicast announcements while serving over the network.
	Announce bool

	// AdvertiseHost is the host placed in announcements.
	// When empty the bound address is used, unless it is unspecified (0.0.0.0 or ::) in which case
	// listeners substitute the sender address.
	AdvertiseHost string

	// AnnouncerOptions configure the announcer started by ServeNetwork.
	AnnouncerOptions []announce.AnnouncerOption

	// CORSOrigins enables CORS on the network transport for the listed origins. "*" allows any origin.
	CORSOrigins []string

	// ShutdownTimeout bounds the graceful shutdown of the network transport.
	ShutdownTimeout time.Duration

	// OnListen is called with the bound address once the network transport is accepting connections.
	OnListen func(addr net.Addr)
}

// NewOptions returns the defaults with opts applied in order. Nil options are skipped.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		Logger:          hclog.NewNullLogger(),
		Announce:        true,
		ShutdownTimeout: 5 * time.Second,
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

// WithLogger configures the logger used by the server.
func WithLogger(logger hclog.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.Logger = logger
		return nil
	}
}

// WithDescription sets the human readable server description.
func WithDescription(description string) Option {
	return func(o *Options) error {
		o.Description = strings.TrimSpace(description)
		return nil
	}
}

// WithToolPrefix sets the prefix consumers should apply to this server's tool names.
func WithToolPrefix(prefix string) Option {
	return func(o *Options) error {
		o.ToolPrefix = strings.TrimSpace(prefix)
		return nil
	}
}

// WithAnnounce enables or disables multicast announcements on the network transport.
func WithAnnounce(enabled bool) Option {
	return func(o *Options) error {
		o.Announce = enabled
		return nil
	}
}

// WithAdvertiseHost sets the host placed in announcements.
func WithAdvertiseHost(host string) Option {
	return func(o *Options) error {
		o.AdvertiseHost = strings.TrimSpace(host)
		return nil
	}
}

// WithAnnouncerOptions configures the announcer started by the network transport.
func WithAnnouncerOptions(opts ...announce.AnnouncerOption) Option {
	return func(o *Options) error {
		o.AnnouncerOptions = append(o.AnnouncerOptions, opts...)
		return nil
	}
}

// WithCORSOrigins enables CORS for origins. A "*" entry allows every origin.
func WithCORSOrigins(origins ...string) Option {
	return func(o *Options) error {
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				return fmt.Errorf("CORS origin cannot be empty")
			}
			if origin == "*" {
				o.CORSOrigins = []string{"*"}
				return nil
			}
			o.CORSOrigins = append(o.CORSOrigins, origin)
		}
		return nil
	}
}

// WithShutdownTimeout bounds how long ServeNetwork waits for in-flight requests when stopping.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid shutdown timeout %s", timeout)
		}
		o.ShutdownTimeout = timeout
		return nil
	}
}

// WithOnListen registers a callback invoked with the bound address of the network transport.
func WithOnListen(fn func(addr net.Addr)) Option {
	return func(o *Options) error {
		o.OnListen = fn
		return nil
	}
}

// validateAddr reports whether addr is a "host:port" pair with a numeric or named port.
func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	switch {
	case err != nil:
		return fmt.Errorf("invalid address '%s': %w", addr, err)
	case port == "":
		return fmt.Errorf("address '%s' has no port", addr)
	}

	if n, err := strconv.Atoi(port); err == nil {
		if n < 0 || n > 65535 {
			return fmt.Errorf("address '%s' has port out of range", addr)
		}
		return nil
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("address '%s' has unknown port '%s'", addr, port)
	}

	return nil
}
