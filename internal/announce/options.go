package announce

import (
	"fmt"
	"net"
	"time"
)

const (
	// DefaultGroupAddress is the well-known multicast group and port announcements are sent to.
	DefaultGroupAddress = "239.255.77.77:42424"

	// DefaultInterval is the delay between two announcements from the same server.
	DefaultInterval = 2 * time.Second

	// DefaultTTL keeps announcements on the local network segment.
	DefaultTTL = 1
)

// ExpiryWindow is how long a network descriptor stays fresh without a new announcement.
// Three missed announcements mark a server stale.
func ExpiryWindow(interval time.Duration) time.Duration {
	return 3 * interval
}

// PacketSink is the sending half of a datagram socket, satisfied by net.PacketConn.
type PacketSink interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	Close() error
}

// PacketSource is the receiving half of a datagram socket, satisfied by net.PacketConn.
type PacketSource interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// AnnouncerOption defines a functional option for configuring an Announcer.
type AnnouncerOption func(*AnnouncerOptions) error

// AnnouncerOptions contains optional configuration for an Announcer.
type AnnouncerOptions struct {
	Group     *net.UDPAddr
	Interval  time.Duration
	TTL       int
	Interface *net.Interface

	// OpenSink opens the socket announcements are written to.
	// The default opens a UDP socket configured for multicast.
	OpenSink func(opts AnnouncerOptions) (PacketSink, error)
}

// NewAnnouncerOptions creates AnnouncerOptions with optional configurations applied.
func NewAnnouncerOptions(opts ...AnnouncerOption) (AnnouncerOptions, error) {
	group, err := net.ResolveUDPAddr("udp4", DefaultGroupAddress)
	if err != nil {
		return AnnouncerOptions{}, err
	}

	options := AnnouncerOptions{
		Group:    group,
		Interval: DefaultInterval,
		TTL:      DefaultTTL,
		OpenSink: openMulticastSink,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return AnnouncerOptions{}, err
		}
	}

	return options, nil
}

// WithGroup configures the multicast group address, e.g. "239.255.77.77:42424".
func WithGroup(address string) AnnouncerOption {
	return func(o *AnnouncerOptions) error {
		group, err := parseGroup(address)
		if err != nil {
			return err
		}
		o.Group = group
		return nil
	}
}

// WithInterval configures the delay between announcements.
func WithInterval(interval time.Duration) AnnouncerOption {
	return func(o *AnnouncerOptions) error {
		if interval <= 0 {
			return fmt.Errorf("announce interval must be positive, got %v", interval)
		}
		o.Interval = interval
		return nil
	}
}

// WithTTL configures the multicast hop limit.
func WithTTL(ttl int) AnnouncerOption {
	return func(o *AnnouncerOptions) error {
		if ttl < 1 || ttl > 255 {
			return fmt.Errorf("multicast TTL must be between 1 and 255, got %d", ttl)
		}
		o.TTL = ttl
		return nil
	}
}

// WithInterface configures the network interface announcements leave from.
func WithInterface(iface *net.Interface) AnnouncerOption {
	return func(o *AnnouncerOptions) error {
		o.Interface = iface
		return nil
	}
}

// WithSink uses sink instead of opening a multicast socket.
func WithSink(sink PacketSink) AnnouncerOption {
	return func(o *AnnouncerOptions) error {
		if sink == nil {
			return fmt.Errorf("packet sink cannot be nil")
		}
		o.OpenSink = func(AnnouncerOptions) (PacketSink, error) {
			return sink, nil
		}
		return nil
	}
}

// ListenOption defines a functional option for configuring Listen.
type ListenOption func(*ListenOptions) error

// ListenOptions contains optional configuration for Listen.
type ListenOptions struct {
	Group      *net.UDPAddr
	Interfaces []*net.Interface
	Clock      func() time.Time

	// OpenSource opens the socket announcements are read from.
	// The default joins the multicast group.
	OpenSource func(opts ListenOptions) (PacketSource, error)
}

// NewListenOptions creates ListenOptions with optional configurations applied.
func NewListenOptions(opts ...ListenOption) (ListenOptions, error) {
	group, err := net.ResolveUDPAddr("udp4", DefaultGroupAddress)
	if err != nil {
		return ListenOptions{}, err
	}

	options := ListenOptions{
		Group: group,
		Clock: func() time.Time {
			return time.Now().UTC()
		},
		OpenSource: openMulticastSource,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return ListenOptions{}, err
		}
	}

	return options, nil
}

// WithListenGroup configures the multicast group joined by the listener.
func WithListenGroup(address string) ListenOption {
	return func(o *ListenOptions) error {
		group, err := parseGroup(address)
		if err != nil {
			return err
		}
		o.Group = group
		return nil
	}
}

// WithListenInterfaces joins the group on each of the given interfaces instead of the system default.
func WithListenInterfaces(ifaces ...*net.Interface) ListenOption {
	return func(o *ListenOptions) error {
		o.Interfaces = ifaces
		return nil
	}
}

// WithListenClock configures the time source used to stamp last_seen.
func WithListenClock(clock func() time.Time) ListenOption {
	return func(o *ListenOptions) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = clock
		return nil
	}
}

// WithSource reads from source instead of joining the multicast group.
func WithSource(source PacketSource) ListenOption {
	return func(o *ListenOptions) error {
		if source == nil {
			return fmt.Errorf("packet source cannot be nil")
		}
		o.OpenSource = func(ListenOptions) (PacketSource, error) {
			return source, nil
		}
		return nil
	}
}

func parseGroup(address string) (*net.UDPAddr, error) {
	group, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return nil, fmt.Errorf("invalid multicast group '%s': %w", address, err)
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("address '%s' is not a multicast group", address)
	}
	if group.Port == 0 {
		return nil, fmt.Errorf("multicast group '%s' requires a port", address)
	}

	return group, nil
}
