package cmd

import (
	"bytes"
	"context"
	"iter"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/cmd"
	cmdopts "github.com/mozilla-ai/quickmcp/internal/cmd/options"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/discovery"
	"github.com/mozilla-ai/quickmcp/internal/registry"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// syncBuffer is a bytes.Buffer safe for a command writing while a test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func baseCmd() *cmd.BaseCmd {
	b := &cmd.BaseCmd{}
	b.SetLogger(hclog.NewNullLogger())
	return b
}

// testEnv is an isolated registry along with the options pointing commands at it.
type testEnv struct {
	path string
	opts []cmdopts.CmdOption
}

func newEnv(t *testing.T, extra ...cmdopts.CmdOption) testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "servers.json")
	opts := append([]cmdopts.CmdOption{
		cmdopts.WithRegistryPath(path),
		cmdopts.WithClock(func() time.Time { return testNow }),
	}, extra...)

	return testEnv{path: path, opts: opts}
}

func (e testEnv) store(t *testing.T) *registry.Store {
	t.Helper()

	s, err := registry.Open(hclog.NewNullLogger(), registry.WithPath(e.path))
	require.NoError(t, err)

	return s
}

func (e testEnv) register(t *testing.T, ds ...descriptor.Descriptor) {
	t.Helper()

	s := e.store(t)
	for _, d := range ds {
		_, err := s.Register(context.Background(), d)
		require.NoError(t, err)
	}
}

type cmdFactory func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error)

// run executes the command built by factory with args, returning what it wrote to stdout and stderr.
func (e testEnv) run(t *testing.T, factory cmdFactory, args ...string) (string, string, error) {
	t.Helper()

	c, err := factory(baseCmd(), e.opts...)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	c.SetArgs(args)

	err = c.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func stdioServer(name string) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:         name,
		Command:      []string{"python3", name + ".py"},
		WorkingDir:   "/srv/" + name,
		Transport:    descriptor.TransportStdio,
		Capabilities: descriptor.Capabilities{Tools: []string{"add", "divide"}},
	}
}

func networkServer(name string, port int, seen time.Time) descriptor.Descriptor {
	return announce.Announcement{Name: name, Host: "10.0.0.7", Port: port, Tools: 3, Prompts: 1}.Descriptor(seen)
}

func withScan(ds ...descriptor.Descriptor) cmdopts.CmdOption {
	return cmdopts.WithDiscoveryOptions(discovery.WithScanFunc(
		func(context.Context, []string) (iter.Seq[descriptor.Descriptor], error) {
			return slices.Values(ds), nil
		},
	))
}

func withListen(datagrams int, ds ...descriptor.Descriptor) cmdopts.CmdOption {
	return cmdopts.WithDiscoveryOptions(discovery.WithListenFunc(
		func(context.Context, time.Duration) (announce.Collection, error) {
			return announce.Collection{Servers: ds, Datagrams: datagrams}, nil
		},
	))
}
