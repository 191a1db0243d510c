package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-elevator-logsim/internal/app"
	"go-elevator-logsim/internal/config"
	"go-elevator-logsim/internal/logger"
)

// Server exposes the shared car over HTTP and WebSocket.
type Server struct {
	app      *app.App
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewServer(a *app.App) *Server {
	return &Server{
		app: a,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		logger: logger.Component("http"),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	session := NewElevatorSession(conn, s.app)
	session.HandleMessages()
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	s.writeJSON(w, http.StatusOK, s.app.Logs(ctx))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Health())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	snap, err := s.app.Snapshot(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to encode response")
	}
}

func main() {
	cfg, cfgErr := config.Load("", "")
	log := logger.Configure(logger.ParseLevel(cfg.LogLevel))
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("Configuration partially loaded, using defaults for the rest")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation")
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(a).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Starting elevator web server")
	log.Info().Msg("Connect to ws://localhost:" + cfg.Port + "/ws")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("HTTP server failed")
		stop()
	}
	if err := <-runErr; err != nil {
		log.Error().Err(err).Msg("Simulation stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Shut down")
}
