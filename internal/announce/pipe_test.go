package announce

import (
	"net"
	"sync"
	"time"
)

// timeoutError satisfies net.Error the way a socket read deadline does.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type datagram struct {
	data []byte
	from net.Addr
}

// pipe is an in-memory datagram socket: whatever is written can be read back, honoring read deadlines.
type pipe struct {
	queue chan datagram
	from  net.Addr

	mu       sync.Mutex
	deadline time.Time
	wake     chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	writeErr error
}

func newPipe() *pipe {
	return &pipe{
		queue:  make(chan datagram, 128),
		from:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000},
		wake:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (p *pipe) WriteTo(b []byte, _ net.Addr) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	select {
	case <-p.closed:
		return 0, net.ErrClosed
	default:
	}

	cp := append([]byte(nil), b...)
	select {
	case p.queue <- datagram{data: cp, from: p.from}:
	default:
	}

	return len(b), nil
}

func (p *pipe) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		p.mu.Lock()
		deadline, wake := p.deadline, p.wake
		p.mu.Unlock()

		var timer <-chan time.Time
		if !deadline.IsZero() {
			wait := time.Until(deadline)
			if wait <= 0 {
				return 0, nil, timeoutError{}
			}
			t := time.NewTimer(wait)
			defer t.Stop()
			timer = t.C
		}

		select {
		case dg := <-p.queue:
			n := copy(b, dg.data)
			return n, dg.from, nil
		case <-timer:
			return 0, nil, timeoutError{}
		case <-p.closed:
			return 0, nil, net.ErrClosed
		case <-wake:
			// Deadline changed, re-evaluate.
		}
	}
}

func (p *pipe) SetReadDeadline(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deadline = t
	close(p.wake)
	p.wake = make(chan struct{})

	return nil
}

func (p *pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipe) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// inject queues a raw datagram as if it had arrived from the network.
func (p *pipe) inject(b []byte) {
	p.queue <- datagram{data: b, from: p.from}
}
