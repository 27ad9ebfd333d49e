// Package webhook implements the FlowMaestro webhook receiver: an HTTP
// server that verifies delivery signatures and routes event notifications
// to registered handlers.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Signature and delivery headers set by FlowMaestro.
const (
	HeaderSignature  = "X-FlowMaestro-Signature"
	HeaderDeliveryID = "X-FlowMaestro-Delivery-ID"
)

// maxBodyBytes bounds webhook payload size.
const maxBodyBytes = 1 << 20

// Config holds webhook server settings.
type Config struct {
	// Addr is the listen address, e.g. ":3456".
	Addr string

	// Secret is the shared HMAC secret. Empty disables verification.
	Secret string

	// Strict rejects deliveries with missing or invalid signatures.
	// When false, failures are logged and the delivery is processed anyway,
	// which suits local development behind a tunnel.
	Strict bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server receives webhook deliveries over HTTP.
type Server struct {
	cfg        Config
	registry   *Registry
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a webhook server routing deliveries through registry.
func NewServer(cfg Config, registry *Registry, logger zerolog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if registry == nil {
		registry = NewRegistry()
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger.With().Str("component", "webhook").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// router builds the chi router with middleware and routes.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Bool("strict", s.cfg.Strict).Msg("webhook server starting")
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("webhook: listen on %s: %w", s.cfg.Addr, err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWebhook verifies, parses, and dispatches one delivery. The
// response is always sent promptly; handler work happens before the ack
// but handlers are expected to queue slow side effects.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	deliveryID := r.Header.Get(HeaderDeliveryID)
	logger := s.logger.With().Str("delivery_id", deliveryID).Logger()

	if !s.verifyDelivery(logger, w, body, r.Header.Get(HeaderSignature)) {
		return
	}

	var delivery Delivery
	if err := json.Unmarshal(body, &delivery); err != nil {
		logger.Warn().Err(err).Msg("invalid delivery payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	delivery.DeliveryID = deliveryID

	handled, err := s.registry.Dispatch(r.Context(), delivery)
	switch {
	case err != nil:
		logger.Error().Err(err).Str("event", delivery.Event).Msg("webhook handler failed")
	case !handled:
		logger.Info().Str("event", delivery.Event).Msg("no handler for event type")
	default:
		logger.Debug().Str("event", delivery.Event).Msg("delivery handled")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// verifyDelivery enforces the signature policy. It writes the error
// response itself and returns false when the delivery must be rejected.
func (s *Server) verifyDelivery(logger zerolog.Logger, w http.ResponseWriter, body []byte, signature string) bool {
	if s.cfg.Secret == "" {
		logger.Debug().Msg("signature verification skipped, no secret configured")
		return true
	}

	if VerifySignature(s.cfg.Secret, body, signature) {
		return true
	}

	if s.cfg.Strict {
		logger.Warn().Msg("rejecting delivery with invalid signature")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return false
	}

	logger.Warn().Msg("invalid signature on delivery, processing anyway (strict mode off)")
	return true
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
