package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

const (
	apiRateLimit  = 600
	apiRateWindow = time.Minute
)

// Options wires the server to the domain
type Options struct {
	Config    entities.ServerConfig
	Prompter  ports.Prompter
	Registry  ports.ChannelRegistry
	Feed      ports.FeedRelay
	Assistant ports.Assistant
	Renderer  ports.MarkdownRenderer
	Metrics   ports.MetricsRecorder
	Logger    zerolog.Logger
}

// Server implements ports.HTTPServer
type Server struct {
	server    *http.Server
	listener  net.Listener
	config    entities.ServerConfig
	prompter  ports.Prompter
	registry  ports.ChannelRegistry
	feed      ports.FeedRelay
	assistant ports.Assistant
	renderer  ports.MarkdownRenderer
	metrics   ports.MetricsRecorder
	limiter   *rateLimiter
	logger    zerolog.Logger
	startedAt time.Time

	mu      sync.RWMutex
	baseCtx context.Context
	cancel  context.CancelFunc
	running bool
}

// NewServer creates the HTTP server. Prompter and Registry are required.
func NewServer(opts Options) *Server {
	if opts.Prompter == nil || opts.Registry == nil {
		panic("http server needs a prompter and a channel registry")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Server{
		config:    opts.Config,
		prompter:  opts.Prompter,
		registry:  opts.Registry,
		feed:      opts.Feed,
		assistant: opts.Assistant,
		renderer:  opts.Renderer,
		metrics:   metrics,
		limiter:   newRateLimiter(apiRateLimit, apiRateWindow),
		logger:    opts.Logger.With().Str("component", "http").Logger(),
		startedAt: time.Now(),
		baseCtx:   context.Background(),
	}
}

// Start binds host:port and serves in the background. Port 0 picks a free port.
func (s *Server) Start(ctx context.Context, port int, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.GetReadTimeout(),
		WriteTimeout:      s.config.GetWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}
	s.running = true

	go s.sweepLimiter(s.baseCtx)
	go func(srv *http.Server) {
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}(s.server)

	return nil
}

// Stop closes every real-time channel and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New("server not running")
	}

	s.registry.CloseAll()
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.GetShutdownTimeout())
	defer cancel()

	s.running = false
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(5 * apiRateWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.sweep()
		}
	}
}

// Handler returns the full middleware-wrapped router
func (s *Server) Handler() http.Handler {
	router := s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.GetCORSOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	// outermost first: recovery -> logging -> cors -> rate limit -> security
	var handler http.Handler = router
	handler = securityHeadersMiddleware(handler)
	handler = s.limiter.middleware(handler)
	handler = c.Handler(handler)
	handler = loggingMiddleware(handler, s.logger, s.metrics)
	handler = recoveryMiddleware(handler, s.logger)
	return handler
}

func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)
	api.HandleFunc("/text", s.handleSetText).Methods(http.MethodPost)
	api.HandleFunc("/control/{action}", s.handleControl).Methods(http.MethodPost)
	api.HandleFunc("/speed", s.handleSetSpeed).Methods(http.MethodPost)
	api.HandleFunc("/mirror", s.handleEnabled(s.prompter.SetMirror)).Methods(http.MethodPost)
	api.HandleFunc("/invert", s.handleEnabled(s.prompter.SetInvert)).Methods(http.MethodPost)

	api.HandleFunc("/webcam", s.handleEnabled(s.prompter.SetWebcamEnabled)).Methods(http.MethodPost)
	api.HandleFunc("/webcam/toggle", s.handleToggleWebcam).Methods(http.MethodPost)
	api.HandleFunc("/webcam/opacity", s.handleWebcamOpacity).Methods(http.MethodPost)
	api.HandleFunc("/webcam/blur", s.handleWebcamBlur).Methods(http.MethodPost)

	api.HandleFunc("/presentation/toggle", s.handleTogglePresentation).Methods(http.MethodPost)
	api.HandleFunc("/presentation/next", s.handleNextSlide).Methods(http.MethodPost)
	api.HandleFunc("/presentation/prev", s.handlePrevSlide).Methods(http.MethodPost)
	api.HandleFunc("/presentation/goto", s.handleGotoSlide).Methods(http.MethodPost)
	api.HandleFunc("/mode", s.handleSetMode).Methods(http.MethodPost)

	api.HandleFunc("/chat/start", s.handleChatStart).Methods(http.MethodPost)
	api.HandleFunc("/chat/stop", s.handleChatStop).Methods(http.MethodPost)
	api.HandleFunc("/chat/status", s.handleChatStatus).Methods(http.MethodGet)
	api.HandleFunc("/chat/messages", s.handleChatMessages).Methods(http.MethodGet)

	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	api.HandleFunc("/assistant/commands", s.handleAssistantCommands).Methods(http.MethodGet)
	api.HandleFunc("/assistant/execute", s.handleAssistantExecute).Methods(http.MethodPost)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "Resource not found"})
	})
	// without this the mismatch falls through to the static file server
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: r.Method + " is not allowed on " + r.URL.Path})
	})

	r.PathPrefix("/").Handler(s.secureFileServer(s.config.GetWebRoot()))
	return r
}

// secureFileServer serves the admin and display views from root,
// refusing paths that escape it
func (s *Server) secureFileServer(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		cleanPath := filepath.Clean("/" + r.URL.Path)
		if strings.Contains(cleanPath, "..") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		absPath, err := filepath.Abs(filepath.Join(root, cleanPath))
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		// views must pick up a new build on reload
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	})
}

var _ ports.HTTPServer = (*Server)(nil)

// nopMetrics stands in when no recorder is wired
type nopMetrics struct{}

func (nopMetrics) RecordHTTPRequest(int)       {}
func (nopMetrics) RecordConnection(bool)       {}
func (nopMetrics) RecordFrame(bool)            {}
func (nopMetrics) RecordRender(time.Duration)  {}
func (nopMetrics) Report() ports.MetricsReport { return ports.MetricsReport{} }
