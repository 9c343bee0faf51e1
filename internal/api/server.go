package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/history"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// PowerService is what the API needs from the power actor.
// *power.Actor implements it.
type PowerService interface {
	Submit(msg power.Message) error
	Snapshot() power.Snapshot
	Observe() *power.Observer
	Stats() power.Stats
	Version() uint64
}

// HistoryReader reads stored transitions. *history.SQLiteRepository implements it.
type HistoryReader interface {
	List(ctx context.Context, deviceID string, limit int) ([]history.Entry, error)
}

// RecorderStats exposes the history recorder's counters.
type RecorderStats interface {
	Stats() history.Stats
}

// ConnectionStatus reports broker connectivity. *mqtt.Client implements it.
type ConnectionStatus interface {
	IsConnected() bool
}

// DBStats exposes connection pool statistics. *database.DB implements it.
type DBStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
// Only Logger and Power are required.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Power    PowerService
	History  HistoryReader
	Recorder RecorderStats
	MQTT     ConnectionStatus
	DB       DBStats
	Version  string
}

// Server is the HTTP API server for powerd.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	power     PowerService
	history   HistoryReader
	recorder  RecorderStats
	mqtt      ConnectionStatus
	db        DBStats
	version   string
	startTime time.Time

	hub     *Hub
	limiter *rateLimiter
	server  *http.Server
	addr    string

	// ctx bounds WebSocket connections; cancel ends them on Close.
	ctx    context.Context //nolint:containedctx // Server-lifetime context for WebSocket pumps
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Power == nil {
		return nil, fmt.Errorf("power service is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		power:     deps.Power,
		history:   deps.History,
		recorder:  deps.Recorder,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.Logger),
		ctx:       ctx,
		cancel:    cancel,
	}
	if deps.Config.RateLimit.Enabled {
		s.limiter = newRateLimiter(deps.Config.RateLimit)
	}

	return s, nil
}

// Start binds the listener and serves HTTP in a background goroutine.
//
// Binding happens synchronously so a port conflict is reported here rather
// than logged later. The server runs until Close is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()

	go s.hub.Run(s.ctx)
	go func() {
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.ctx.Done():
		}
	}()

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", s.addr)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	return s.addr
}

// Close gracefully shuts down the API server.
//
// WebSocket clients are disconnected first, then in-flight requests get up
// to 10 seconds to complete.
func (s *Server) Close() error {
	s.cancel()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
