package announce

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Announcer periodically multicasts the presence of a running network server.
// Delivery is fire-and-forget: nothing is acknowledged or retried, a lost datagram is replaced by the
// next one an interval later.
type Announcer struct {
	logger hclog.Logger
	opts   AnnouncerOptions

	mu      sync.Mutex
	frame   []byte
	name    string
	sink    PacketSink
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewAnnouncer returns an Announcer for a. The announcement is validated and encoded up front.
// An instance ID is generated when a does not carry one.
func NewAnnouncer(logger hclog.Logger, a Announcement, opts ...AnnouncerOption) (*Announcer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	options, err := NewAnnouncerOptions(opts...)
	if err != nil {
		return nil, err
	}

	if a.InstanceID == "" {
		a.InstanceID = uuid.NewString()
	}

	frame, err := Encode(a)
	if err != nil {
		return nil, err
	}

	return &Announcer{
		logger: logger.Named("announcer"),
		opts:   options,
		frame:  frame,
		name:   a.Name,
	}, nil
}

// Start opens the announce socket and returns immediately, announcing in the background:
// once straight away and then every interval until ctx is cancelled or Stop is called.
// Socket errors while sending are logged and never stop the loop.
func (a *Announcer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started || a.stopped {
		return fmt.Errorf("announcer for '%s' already started", a.name)
	}

	sink, err := a.opts.OpenSink(a.opts)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.sink = sink
	a.cancel = cancel
	a.done = make(chan struct{})
	a.started = true

	go a.run(loopCtx, sink, a.done)

	a.logger.Info("Announcing server", "name", a.name, "group", a.opts.Group.String(), "interval", a.opts.Interval)

	return nil
}

// Stop ends the announce loop and closes the socket. It is safe to call more than once,
// and before Start.
func (a *Announcer) Stop() {
	a.mu.Lock()
	if !a.started || a.stopped {
		a.stopped = true
		a.mu.Unlock()
		return
	}
	a.stopped = true
	cancel, done, sink := a.cancel, a.done, a.sink
	a.mu.Unlock()

	cancel()
	<-done

	if err := sink.Close(); err != nil {
		a.logger.Debug("Failed to close announce socket", "error", err)
	}

	a.logger.Info("Stopped announcing server", "name", a.name, "sent", a.sent.Load(), "failed", a.failed.Load())
}

// Update replaces the announcement sent from the next interval onward.
func (a *Announcer) Update(next Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if next.InstanceID == "" {
		if current, err := Decode(a.frame); err == nil {
			next.InstanceID = current.InstanceID
		}
	}

	frame, err := Encode(next)
	if err != nil {
		return err
	}

	a.frame = frame
	a.name = next.Name

	return nil
}

// Sent returns the number of announcements written successfully.
func (a *Announcer) Sent() uint64 {
	return a.sent.Load()
}

// Interval returns the delay between announcements.
func (a *Announcer) Interval() time.Duration {
	return a.opts.Interval
}

func (a *Announcer) run(ctx context.Context, sink PacketSink, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	for {
		a.announce(sink)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Announcer) announce(sink PacketSink) {
	a.mu.Lock()
	frame := a.frame
	a.mu.Unlock()

	if _, err := sink.WriteTo(frame, a.opts.Group); err != nil {
		a.failed.Add(1)
		a.logger.Warn("Failed to send announcement", "group", a.opts.Group.String(), "error", err)
		return
	}

	a.sent.Add(1)
	a.logger.Trace("Sent announcement", "bytes", len(frame))
}
