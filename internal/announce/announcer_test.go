package announce

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAnnouncer(t *testing.T) {
	t.Parallel()

	t.Run("assigns an instance id", func(t *testing.T) {
		t.Parallel()

		a, err := NewAnnouncer(nil, net1(), WithSink(newPipe()))
		require.NoError(t, err)

		decoded, err := Decode(a.frame)
		require.NoError(t, err)
		require.NotEmpty(t, decoded.InstanceID)
		require.Equal(t, DefaultInterval, a.Interval())
	})

	t.Run("rejects invalid announcement", func(t *testing.T) {
		t.Parallel()

		_, err := NewAnnouncer(nil, Announcement{Name: "x"}, WithSink(newPipe()))
		require.Error(t, err)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		t.Parallel()

		_, err := NewAnnouncer(nil, net1(), WithInterval(0))
		require.Error(t, err)

		_, err = NewAnnouncer(nil, net1(), WithGroup("10.0.0.1:42424"))
		require.ErrorContains(t, err, "not a multicast group")

		_, err = NewAnnouncer(nil, net1(), WithTTL(0))
		require.Error(t, err)
	})
}

func TestAnnouncer_StartSendsImmediatelyAndPeriodically(t *testing.T) {
	t.Parallel()

	p := newPipe()
	a, err := NewAnnouncer(nil, net1(), WithInterval(20*time.Millisecond), WithSink(p))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, a.Start(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond, "start must not block")

	require.Eventually(t, func() bool { return a.Sent() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return a.Sent() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a.Stop()
	require.True(t, p.isClosed())

	sent := a.Sent()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, sent, a.Sent(), "no announcements after stop")
}

func TestAnnouncer_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	a, err := NewAnnouncer(nil, net1(), WithSink(newPipe()))
	require.NoError(t, err)

	a.Stop() // Before start.
	require.Error(t, a.Start(context.Background()), "a stopped announcer cannot be restarted")
	a.Stop()
}

func TestAnnouncer_DoubleStart(t *testing.T) {
	t.Parallel()

	a, err := NewAnnouncer(nil, net1(), WithSink(newPipe()))
	require.NoError(t, err)

	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	require.Error(t, a.Start(context.Background()))
}

func TestAnnouncer_StopsWithContext(t *testing.T) {
	t.Parallel()

	p := newPipe()
	a, err := NewAnnouncer(nil, net1(), WithInterval(10*time.Millisecond), WithSink(p))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	require.Eventually(t, func() bool { return a.Sent() >= 1 }, time.Second, time.Millisecond)

	cancel()
	a.Stop()
	require.True(t, p.isClosed())
}

func TestAnnouncer_SendErrorsDoNotStopTheLoop(t *testing.T) {
	t.Parallel()

	p := newPipe()
	p.writeErr = fmt.Errorf("network unreachable")

	a, err := NewAnnouncer(nil, net1(), WithInterval(5*time.Millisecond), WithSink(p))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	require.Eventually(t, func() bool { return a.failed.Load() >= 3 }, 2*time.Second, time.Millisecond)
	require.Zero(t, a.Sent())
}

func TestAnnouncer_Update(t *testing.T) {
	t.Parallel()

	a, err := NewAnnouncer(nil, net1(), WithSink(newPipe()))
	require.NoError(t, err)

	before, err := Decode(a.frame)
	require.NoError(t, err)

	next := net1()
	next.Tools = 7
	require.NoError(t, a.Update(next))

	after, err := Decode(a.frame)
	require.NoError(t, err)
	require.Equal(t, 7, after.Tools)
	require.Equal(t, before.InstanceID, after.InstanceID, "instance id is preserved across updates")

	require.Error(t, a.Update(Announcement{}))
}

func TestExpiryWindow(t *testing.T) {
	t.Parallel()

	require.Equal(t, 6*time.Second, ExpiryWindow(DefaultInterval))
}
