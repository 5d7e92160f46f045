// Package server exposes the notes API, the history-fallback shell and
// websocket navigation sessions over one chi router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/notes/internal/analytics"
	"github.com/vango-dev/notes/internal/export"
	"github.com/vango-dev/notes/internal/notes"
	"github.com/vango-dev/notes/internal/views"
	"github.com/vango-dev/notes/pkg/middleware"
	"github.com/vango-dev/notes/pkg/router"
)

// Store is the note persistence the API needs.
type Store interface {
	Create(ctx context.Context, in notes.Create) (*notes.Note, error)
	Get(ctx context.Context, id int64) (*notes.Note, error)
	List(ctx context.Context) ([]notes.Note, error)
	Update(ctx context.Context, id int64, in notes.Update) (*notes.Note, error)
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context, id int64) ([]notes.Version, error)
	Ping(ctx context.Context) error
}

// Reporter produces analytics reports.
type Reporter interface {
	Report(ctx context.Context) (*analytics.Report, error)
}

// Summarizer summarizes note content.
type Summarizer interface {
	Configured() bool
	Summarize(ctx context.Context, text string) (string, error)
}

// Exporter writes snapshots of every note.
type Exporter interface {
	Export(ctx context.Context, src export.Lister) (*export.Result, error)
}

// Config configures the server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// History, Base and MaxHistory configure navigation routers.
	History    router.HistoryMode
	Base       string
	MaxHistory int

	// ReadTimeout bounds the wait for the next websocket message.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration

	// ReadHeaderTimeout bounds reading HTTP request headers.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// CheckOrigin validates websocket origins. Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:8000",
		History:           router.HistoryPath,
		MaxHistory:        router.DefaultMaxHistory,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		CheckOrigin:       SameOriginCheck,
	}
}

// Server serves the API, the shell and websocket sessions.
type Server struct {
	config     Config
	store      Store
	reports    Reporter
	summarizer Summarizer
	exporter   Exporter

	table        *router.Table
	navigation   []router.Middleware
	metrics      *middleware.Metrics
	gatherer     prometheus.Gatherer
	tracing      bool
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	handler      http.Handler
	handlerOnce  sync.Once
	httpServer   *http.Server
	mu           sync.Mutex
	conns        map[string]*conn
	shuttingDown bool
}

// Option configures a Server.
type Option func(*Server)

// WithSummarizer enables POST /api/summarizer/{id}.
func WithSummarizer(s Summarizer) Option {
	return func(srv *Server) {
		srv.summarizer = s
	}
}

// WithExporter enables POST /api/export.
func WithExporter(e Exporter) Option {
	return func(srv *Server) {
		srv.exporter = e
	}
}

// WithMetrics records HTTP, navigation and websocket metrics on m and
// serves gatherer at /metrics.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.metrics = m
		srv.gatherer = gatherer
	}
}

// WithTracing opens OpenTelemetry spans for requests and navigations.
func WithTracing() Option {
	return func(srv *Server) {
		srv.tracing = true
	}
}

// WithNavigationMiddleware adds router middleware to every navigation.
func WithNavigationMiddleware(mw ...router.Middleware) Option {
	return func(srv *Server) {
		srv.navigation = append(srv.navigation, mw...)
	}
}

// WithTable replaces the default views table.
func WithTable(t *router.Table) Option {
	return func(srv *Server) {
		if t != nil {
			srv.table = t
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// New creates a server over store and reports.
func New(config Config, store Store, reports Reporter, opts ...Option) *Server {
	defaults := DefaultConfig()
	if config.MaxHistory == 0 {
		config.MaxHistory = defaults.MaxHistory
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = defaults.CheckOrigin
	}

	s := &Server{
		config:  config,
		store:   store,
		reports: reports,
		table:   views.Table(),
		logger:  slog.Default().With("component", "server"),
		conns:   make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     config.CheckOrigin,
	}
	if s.metrics != nil {
		s.navigation = append([]router.Middleware{s.metrics.Navigation()}, s.navigation...)
	}
	if s.tracing {
		s.navigation = append(s.navigation, middleware.OpenTelemetry())
	}
	return s
}

// Table returns the route table navigations resolve against.
func (s *Server) Table() *router.Table {
	return s.table
}

// newRouter creates a navigation router with the server's settings.
func (s *Server) newRouter(logger *slog.Logger, opts ...router.Option) *router.Router {
	base := []router.Option{
		router.WithHistory(s.config.History),
		router.WithBase(s.config.Base),
		router.WithNotFound(views.NotFound),
		router.WithMaxHistory(s.config.MaxHistory),
		router.WithMiddleware(s.navigation...),
		router.WithLogger(logger),
	}
	return router.New(s.table, append(base, opts...)...)
}

// Handler returns the HTTP handler. It is built once.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.HTTP)
	}
	if s.tracing {
		r.Use(middleware.Tracing())
	}

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.handleListNotes)
			r.Post("/", s.handleCreateNote)
			r.Get("/{id}", s.handleGetNote)
			r.Put("/{id}", s.handleUpdateNote)
			r.Delete("/{id}", s.handleDeleteNote)
		})
		r.Get("/history/{id}", s.handleHistory)
		r.Get("/analytics", s.handleAnalytics)
		r.Post("/summarizer/{id}", s.handleSummarize)
		r.Post("/export", s.handleExport)
		r.Get("/routes", s.handleRoutes)
		r.Get("/resolve", s.handleResolve)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, s.logger, apiNotFound(r))
		})
	})

	r.Get("/*", s.handleShell)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes websocket sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.shuttingDown = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Connections returns the number of open websocket sessions.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
