package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/ibc"
	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

// Config controls the HTTP server shell.
type Config struct {
	Addr               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	OTel               *OTelConfig
}

// DefaultConfig returns sane defaults for the indexer's read API.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: 300,
	}
}

// Server exposes the indexer's read-only REST API alongside health,
// readiness, and metrics endpoints.
type Server struct {
	httpServer   *http.Server
	router       *chi.Mux
	otelShutdown func(context.Context) error
	log          zerolog.Logger
	cfg          Config
}

// NewServer builds a Server wired to the given store and token service.
func NewServer(cfg Config, store ibc.Store, tokens *token.Service, log zerolog.Logger) (*Server, error) {
	r := chi.NewRouter()

	r.Use(zerologMiddleware(log))
	r.Use(zerologRecoverer(log))
	r.Use(middleware.RequestID)
	r.Use(realIPMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(cfg.WriteTimeout))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(newCORSHandler(cfg.CORSAllowedOrigins))
	}

	var otelShutdown func(context.Context) error
	if cfg.OTel != nil {
		shutdown, err := NewOTelSDK(context.Background(), cfg.OTel)
		if err != nil {
			return nil, fmt.Errorf("failed to bootstrap telemetry: %w", err)
		}
		otelShutdown = shutdown
		if cfg.OTel.PrometheusHandler != nil {
			r.Handle("/server/metrics", promhttp.Handler())
		}
	}

	r.Get("/server/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/server/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	api := newAPI(store, tokens, log)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/channels/{network}", api.listChannels)
		r.Get("/packets/{network}/{sequence}/{srcPort}/{srcChannel}", api.getPacket)
		r.Get("/relayers/{network}/{address}", api.getRelayer)
		r.Get("/tokens/{denom}", api.getToken)
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h2c.NewHandler(r, &http2.Server{}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer:   httpServer,
		router:       r,
		otelShutdown: otelShutdown,
		log:          log,
		cfg:          cfg,
	}, nil
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if s.otelShutdown != nil {
		if otelErr := s.otelShutdown(shutdownCtx); otelErr != nil {
			err = errors.Join(err, otelErr)
		}
	}
	return err
}

type api struct {
	store  ibc.Store
	tokens *token.Service
	log    zerolog.Logger
}

func newAPI(store ibc.Store, tokens *token.Service, log zerolog.Logger) *api {
	return &api{store: store, tokens: tokens, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) listChannels(w http.ResponseWriter, r *http.Request) {
	network := ibc.Network(chi.URLParam(r, "network"))
	channels, err := a.store.ListChannelsByNetwork(r.Context(), network)
	if err != nil {
		a.log.Error().Err(err).Msg("list channels failed")
		writeError(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (a *api) getPacket(w http.ResponseWriter, r *http.Request) {
	network := ibc.Network(chi.URLParam(r, "network"))
	sequence, err := strconv.ParseUint(chi.URLParam(r, "sequence"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sequence")
		return
	}
	srcPort := chi.URLParam(r, "srcPort")
	srcChannel := chi.URLParam(r, "srcChannel")

	packet, err := a.store.GetPacketBySource(r.Context(), srcPort, srcChannel, sequence, network)
	if err != nil {
		a.log.Error().Err(err).Msg("get packet failed")
		writeError(w, http.StatusInternalServerError, "failed to load packet")
		return
	}
	if packet == nil {
		writeError(w, http.StatusNotFound, "packet not found")
		return
	}

	packetID := ibc.CreatePacketID(srcPort, srcChannel, strconv.FormatUint(sequence, 10))
	transfer, err := a.store.GetTransferByPacketID(r.Context(), packetID, network)
	if err != nil {
		a.log.Error().Err(err).Msg("get transfer failed")
		writeError(w, http.StatusInternalServerError, "failed to load transfer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"packet":   packet,
		"transfer": transfer,
	})
}

func (a *api) getRelayer(w http.ResponseWriter, r *http.Request) {
	network := ibc.Network(chi.URLParam(r, "network"))
	address := chi.URLParam(r, "address")
	relayer, err := a.store.GetRelayer(r.Context(), address, network)
	if err != nil {
		a.log.Error().Err(err).Msg("get relayer failed")
		writeError(w, http.StatusInternalServerError, "failed to load relayer")
		return
	}
	if relayer == nil {
		writeError(w, http.StatusNotFound, "relayer not found")
		return
	}
	writeJSON(w, http.StatusOK, relayer)
}

func (a *api) getToken(w http.ResponseWriter, r *http.Request) {
	denom := chi.URLParam(r, "denom")
	if a.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "token service unavailable")
		return
	}
	tok := a.tokens.GetToken(r.Context(), denom)
	writeJSON(w, http.StatusOK, tok)
}
