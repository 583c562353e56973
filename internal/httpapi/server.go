package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/getmetherapy/mochat/internal/config"
	"github.com/getmetherapy/mochat/internal/conversation"
	"github.com/getmetherapy/mochat/internal/observability"
	"github.com/getmetherapy/mochat/internal/session"
)

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	turns      *conversation.TurnHandler
	summarizer *conversation.Summarizer
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, turns *conversation.TurnHandler, summarizer *conversation.Summarizer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		turns:      turns,
		summarizer: summarizer,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
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

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat/message", s.handleSubmitTurn)
	r.Post("/v1/chat/summary", s.handleGenerateSummary)
	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Post("/v1/chat/session/{id}/end", s.handleEndSession)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type submitTurnRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type submitTurnResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	var req submitTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "message and user_id are required")
		return
	}

	reply, err := s.turns.Handle(r.Context(), req.UserID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "invalid_request", "message and user_id are required")
		case errors.Is(err, conversation.ErrGenerationFailed):
			log.Printf("turn generation failed: %v", err)
			respondError(w, http.StatusBadGateway, "generation_failed", "something went wrong, please try again")
		default:
			log.Printf("turn handling failed: %v", err)
			respondError(w, http.StatusInternalServerError, "store_failed", "something went wrong, please try again")
		}
		return
	}

	if id := strings.TrimSpace(req.SessionID); id != "" {
		if err := s.sessions.RecordExchange(id); err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Printf("record exchange failed: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, submitTurnResponse{Reply: reply})
}

type summaryRequest struct {
	UserID string `json:"user_id"`
}

// handleGenerateSummary serves the explicit summary trigger, including the
// fire-and-forget beacon the client sends on page close. Internal failures
// are reported in the response and never disrupt the conversational flow.
func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	res, err := s.summarizer.Summarize(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		log.Printf("summary generation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "summary_failed", "failed to generate summary")
		return
	}
	if res.Skipped {
		respondJSON(w, http.StatusOK, map[string]any{"skipped": true, "reason": res.Reason})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "summary": res.Summary})
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

type createSessionResponse struct {
	*session.Session
	IdleTTLMS int64 `json:"idle_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	sess := s.sessions.Create(req.UserID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createSessionResponse{
		Session:   sess,
		IdleTTLMS: s.cfg.IdleTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
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
