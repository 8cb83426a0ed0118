package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mozilla-ai/quickmcp/internal/announce"
	"github.com/mozilla-ai/quickmcp/internal/api"
	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
	"github.com/mozilla-ai/quickmcp/internal/export"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// ServeStdio serves MCP over the process's standard input and output until ctx is cancelled or
// stdin is closed.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO serves MCP over in and out until ctx is cancelled or in reaches EOF.
// Cancellation is a clean shutdown and returns nil.
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.MCPServer())
	stdio.SetErrorLogger(s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}))

	s.markServing(descriptor.TransportStdio, "", 0, "")
	defer s.markStopped()

	s.logger.Info("Serving MCP over stdio", "name", s.name)

	err := stdio.Listen(ctx, in, out)
	if err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, io.EOF) {
		return fmt.Errorf("stdio transport for '%s' failed: %w", s.name, err)
	}

	return nil
}

// ServeNetwork serves MCP over streamable HTTP at export.DefaultURLPath on addr, and blocks until
// ctx is cancelled or the listener fails.
//
// The listener is bound before anything else happens, so the server is reachable as soon as OnListen
// fires. Announcing then starts in the background: failing to announce is logged and never prevents
// serving. Alongside the MCP endpoint the server exposes /health, /info and a read-only capability API
// under /api/v1. Cancellation is a clean shutdown and returns nil.
func (s *Server) ServeNetwork(ctx context.Context, addr string) error {
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfig, err)
	}

	mcpSrv := s.MCPServer()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	bound, _ := ln.Addr().(*net.TCPAddr)
	var port int
	var host string
	if bound != nil {
		port = bound.Port
		if !bound.IP.IsUnspecified() {
			host = bound.IP.String()
		}
	}
	if s.opts.AdvertiseHost != "" {
		host = s.opts.AdvertiseHost
	}

	s.markServing(descriptor.TransportNetwork, host, port, ln.Addr().String())
	defer s.markStopped()

	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	if len(s.opts.CORSOrigins) > 0 {
		s.logger.Info("Enabling CORS", "origins", s.opts.CORSOrigins)
		mux.Use(corsHandler(s.opts.CORSOrigins))
	}

	config := huma.DefaultConfig(s.name+" docs", s.versionOrDefault())
	router := humachi.New(mux, config)

	// Configure the error handling wrapping.
	huma.NewErrorWithContext = api.ErrorHandler(s.logger)

	apiPathPrefix, err := api.RegisterRoutes(router, s)
	if err != nil {
		_ = ln.Close()
		return err
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithEndpointPath(export.DefaultURLPath))
	mux.Handle(export.DefaultURLPath, streamable)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info(
		"Serving MCP over HTTP",
		"name", s.name,
		"address", ln.Addr().String(),
		"endpoint", export.DefaultURLPath,
		"prefix", apiPathPrefix,
	)
	if s.opts.OnListen != nil {
		s.opts.OnListen(ln.Addr())
	}

	s.startAnnouncer(ctx, host, port)
	defer s.stopAnnouncer()

	// Handle graceful shutdown.
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down network server...")
		_ = streamable.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
		s.logger.Info("Shutdown complete")

		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("network transport for '%s' failed: %w", s.name, err)
		}
		return nil
	}
}

// startAnnouncer begins announcing the server when enabled. Failures are logged, never returned.
func (s *Server) startAnnouncer(ctx context.Context, host string, port int) {
	if !s.opts.Announce {
		return
	}

	counts := s.Counts()
	a, err := announce.NewAnnouncer(s.logger, announce.Announcement{
		Name:      s.name,
		Host:      host,
		Port:      port,
		Transport: descriptor.TransportNetwork,
		Version:   s.version,
		Tools:     counts.Tools,
		Resources: counts.Resources,
		Prompts:   counts.Prompts,
	}, s.opts.AnnouncerOptions...)
	if err != nil {
		s.logger.Warn("Failed to create announcer, continuing without announcements", "error", err)
		return
	}

	if err := a.Start(ctx); err != nil {
		s.logger.Warn("Failed to start announcer, continuing without announcements", "error", err)
		return
	}

	s.mu.Lock()
	s.announcer = a
	s.mu.Unlock()
}

func (s *Server) stopAnnouncer() {
	s.mu.Lock()
	a := s.announcer
	s.mu.Unlock()

	if a != nil {
		a.Stop()
	}
}

// corsHandler allows browsers at origins to reach the MCP endpoint and API.
// Credentials are never allowed, so a wildcard origin stays valid.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	})
}

func (s *Server) versionOrDefault() string {
	if s.version == "" {
		return "dev"
	}

	return s.version
}
