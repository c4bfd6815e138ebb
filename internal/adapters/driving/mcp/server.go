package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// Version is reported to MCP clients during initialisation.
const Version = "0.1.0"

// Paths served next to the MCP endpoint in HTTP mode.
const (
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
	WebhookPath = "/webhooks/googledrive"
)

// Server exposes Google Drive as MCP tools and resources.
type Server struct {
	ports    *Ports
	server   *mcp.Server
	gatherer prometheus.Gatherer
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer sets the registry exposed on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer validates ports and registers every tool and resource.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingDriveAPI
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}

	s := &Server{
		ports:    ports,
		server:   mcp.NewServer(&mcp.Implementation{Name: "connect-googledrive", Version: Version}, nil),
		gatherer: prometheus.DefaultGatherer,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves MCP over stdin and stdout until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler routes the streamable MCP endpoint at the root, Prometheus
// metrics on MetricsPath, a liveness probe on HealthPath and Drive push
// notifications on WebhookPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc(HealthPath, s.serveHealth)
	mux.HandleFunc("POST "+WebhookPath, s.serveWebhook)
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil))
	return mux
}

// serveHealth checks local state only, so probes never spend API quota.
func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ports.Health != nil {
		if err := s.ports.Health.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "state database: %v\n", err)
			return
		}
	}
	fmt.Fprintln(w, "ok")
}

// serveWebhook accepts a Drive push notification. The channel id and token
// headers must match a registered channel.
func (s *Server) serveWebhook(w http.ResponseWriter, r *http.Request) {
	if s.ports.Watch == nil {
		http.Error(w, ErrNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}
	n := domain.ChannelNotification{
		ChannelID:     r.Header.Get("X-Goog-Channel-Id"),
		Token:         r.Header.Get("X-Goog-Channel-Token"),
		ResourceID:    r.Header.Get("X-Goog-Resource-Id"),
		ResourceURI:   r.Header.Get("X-Goog-Resource-Uri"),
		ResourceState: r.Header.Get("X-Goog-Resource-State"),
		MessageNumber: r.Header.Get("X-Goog-Message-Number"),
	}
	if n.ChannelID == "" {
		http.Error(w, "missing channel header", http.StatusBadRequest)
		return
	}
	if v := r.Header.Get("X-Goog-Channel-Expiration"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			n.Expiration = t
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20))

	ctx := r.Context()
	if _, err := s.ports.Watch.ValidateChannel(ctx, n.ChannelID, n.Token); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrPermission) {
			status = http.StatusForbidden
		}
		logger.Warn("webhook: rejected notification for channel %s: %v", n.ChannelID, err)
		http.Error(w, err.Error(), status)
		return
	}
	if _, err := s.ports.Watch.Upsert(ctx, s.ports.AccountID, n); err != nil {
		logger.Warn("webhook: channel %s: %v", n.ChannelID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunHTTP listens on addr and serves until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp listen: %w", err)
	}
	return s.Serve(ctx, l)
}

// Serve handles HTTP on l until ctx is done, then drains open requests for
// up to five seconds. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Debug("mcp: serving on %s (metrics at %s)", l.Addr(), MetricsPath)
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
