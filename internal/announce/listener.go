package announce

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
)

// readBufferSize is larger than MaxDatagramSize so oversized frames are read whole and rejected.
const readBufferSize = 64 * 1024

// Collection is the result of one listen window.
type Collection struct {
	// Servers holds one descriptor per (name, host, port), in the order first heard.
	Servers []descriptor.Descriptor

	// Datagrams is the number of raw datagrams received, valid or not.
	Datagrams int

	// Invalid is the number of datagrams that could not be decoded.
	Invalid int
}

// collector deduplicates announcements by key, the most recently seen one wins.
type collector struct {
	servers *orderedmap.OrderedMap[descriptor.Key, descriptor.Descriptor]
}

func newCollector() *collector {
	return &collector{servers: orderedmap.New[descriptor.Key, descriptor.Descriptor]()}
}

func (c *collector) add(d descriptor.Descriptor) {
	key := d.Key()
	if existing, ok := c.servers.Get(key); ok && existing.LastSeen != nil && d.LastSeen != nil &&
		existing.LastSeen.After(*d.LastSeen) {
		return
	}
	c.servers.Set(key, d)
}

func (c *collector) list() []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, 0, c.servers.Len())
	for pair := c.servers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Merge deduplicates network descriptors by (name, host, port), keeping the latest LastSeen of each key.
func Merge(descriptors ...[]descriptor.Descriptor) []descriptor.Descriptor {
	c := newCollector()
	for _, d := range slices.Concat(descriptors...) {
		c.add(d)
	}
	return c.list()
}

// Listen collects announcements for timeout and returns exactly at the deadline.
// A zero timeout only drains datagrams already queued on the socket, waiting at most drainWindow.
// Cancelling ctx stops listening early and returns what was collected along with ctx.Err().
func Listen(ctx context.Context, logger hclog.Logger, timeout time.Duration, opts ...ListenOption) (Collection, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("listener")

	if timeout < 0 {
		return Collection{}, fmt.Errorf("listen timeout cannot be negative, got %v", timeout)
	}

	options, err := NewListenOptions(opts...)
	if err != nil {
		return Collection{}, err
	}

	source, err := options.OpenSource(options)
	if err != nil {
		return Collection{}, err
	}

	closeSource := sync.OnceValue(source.Close)
	defer func() { _ = closeSource() }()
	stop := context.AfterFunc(ctx, func() { _ = closeSource() })
	defer stop()

	window := timeout
	if window == 0 {
		window = drainWindow
	}
	deadline := time.Now().Add(window)
	results := newCollector()
	coll := Collection{}
	buf := make([]byte, readBufferSize)

	logger.Debug("Listening for announcements", "group", options.Group.String(), "timeout", timeout)

	for time.Now().Before(deadline) {
		if err := source.SetReadDeadline(deadline); err != nil {
			return finish(coll, results), fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, addr, err := source.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return finish(coll, results), ctx.Err()
			}
			if isTimeout(err) {
				break
			}
			if stderrors.Is(err, net.ErrClosed) {
				break
			}
			return finish(coll, results), fmt.Errorf("failed to read announcement: %w", err)
		}

		coll.Datagrams++

		a, err := Decode(buf[:n])
		if err != nil {
			coll.Invalid++
			logger.Debug("Ignoring invalid announcement", "from", addrString(addr), "error", err)
			continue
		}

		if host := strings.TrimSpace(a.Host); host == "" || host == "0.0.0.0" {
			a.Host = senderHost(addr)
		}
		d := a.Descriptor(options.Clock())
		if err := d.Validate(); err != nil {
			coll.Invalid++
			logger.Debug("Ignoring incomplete announcement", "from", addrString(addr), "error", err)
			continue
		}

		logger.Trace("Received announcement", "server", d.Key().String())
		results.add(d)
	}

	coll = finish(coll, results)
	logger.Debug("Finished listening", "datagrams", coll.Datagrams, "servers", len(coll.Servers))

	return coll, nil
}

// drainWindow is how long a zero-timeout Listen reads for.
// Socket reads fail before checking the queue once their deadline has passed, so an already expired
// deadline would never return queued datagrams.
const drainWindow = 5 * time.Millisecond

func finish(coll Collection, results *collector) Collection {
	coll.Servers = results.list()
	return coll
}

func isTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

func senderHost(addr net.Addr) string {
	if udp, ok := addr.(*net.UDPAddr); ok && udp.IP != nil {
		return udp.IP.String()
	}
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
