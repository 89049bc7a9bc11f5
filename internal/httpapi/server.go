package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/bot"
	"github.com/ent0n29/tojibot/internal/config"
	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/observability"
)

// Router is the platform-neutral message handler behind every transport.
type Router interface {
	HandleCommand(ctx context.Context, cmd bot.Command) (bot.Reply, error)
	HandleMessage(ctx context.Context, msg bot.Message) bot.Reply
	Commands() []bot.CommandDefinition
}

// Dependency is an external backend probed by /readyz and /v1/status.
type Dependency struct {
	Name    string
	Backend string
	Check   func(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	router   Router
	deps     []Dependency
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, router Router, deps []Dependency, metrics *observability.Metrics, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		router:  router,
		deps:    deps,
		metrics: metrics,
		logger:  logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Get("/v1/commands", s.handleListCommands)
	r.Post("/v1/commands/{name}", s.handleCommand)
	r.Post("/v1/messages", s.handleMessage)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"persona": s.cfg.Persona.Name,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.checkDependencies(r.Context())
	status := http.StatusOK
	state := "ready"
	for _, res := range results {
		if res.Status == "error" {
			status = http.StatusServiceUnavailable
			state = "unavailable"
			break
		}
	}
	respondJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": results,
	})
}

func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"commands": s.router.Commands()})
}

type commandRequest struct {
	UserID  string            `json:"user_id"`
	Options map[string]string `json:"options"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	reply, err := s.router.HandleCommand(r.Context(), bot.Command{
		Name:    chi.URLParam(r, "name"),
		Options: req.Options,
		UserID:  req.UserID,
	})
	switch {
	case errors.Is(err, bot.ErrUnknownCommand):
		respondError(w, http.StatusNotFound, "unknown_command", err.Error())
	case errors.Is(err, bot.ErrMissingOption):
		respondError(w, http.StatusBadRequest, "missing_option", err.Error())
	case err != nil:
		s.logger.Error("command failed",
			zap.String("op", "httpapi.command"), zap.String("user_id", req.UserID), zap.Error(err))
		respondJSON(w, http.StatusOK, bot.Reply{Handled: true, Text: s.cfg.Persona.FallbackReply})
	default:
		respondJSON(w, http.StatusOK, reply)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg bot.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(msg.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	respondJSON(w, http.StatusOK, s.router.HandleMessage(r.Context(), msg))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
