package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getmetherapy/mochat/internal/conversation"
	"github.com/getmetherapy/mochat/internal/protocol"
)

// handleChatWS runs one chat conversation over a websocket. The connection
// teardown doubles as the session-termination signal: ending the session
// fires the idle summary when one is still owed.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout + time.Minute))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout + time.Minute))
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.writeWSEvent(conn, protocol.NewErrorEvent("invalid_client_message", err.Error()))
			continue
		}

		reply, err := s.turns.Handle(r.Context(), sess.UserID, msg.Message)
		if err != nil {
			s.writeWSEvent(conn, wsErrorFor(err))
			continue
		}
		if err := s.sessions.RecordExchange(sessionID); err != nil {
			log.Printf("record exchange failed: %v", err)
		}
		s.writeWSEvent(conn, protocol.NewBotReply(reply))
	}

	// Disconnect is a session-end signal whether or not the client said
	// goodbye; End is a no-op fire-wise once the guard has tripped.
	if _, err := s.sessions.End(sessionID); err != nil {
		log.Printf("end session on disconnect failed: %v", err)
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) writeWSEvent(conn *websocket.Conn, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("ws write failed: %v", err)
	}
}

func wsErrorFor(err error) protocol.ErrorEvent {
	switch {
	case errors.Is(err, conversation.ErrInvalidRequest):
		return protocol.NewErrorEvent("invalid_request", "message is required")
	case errors.Is(err, conversation.ErrGenerationFailed):
		return protocol.NewErrorEvent("generation_failed", "something went wrong, please try again")
	default:
		return protocol.NewErrorEvent("store_failed", "something went wrong, please try again")
	}
}
