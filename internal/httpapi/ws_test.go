package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getmetherapy/mochat/internal/session"
)

func dialWS(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial error = %v", err)
	}
	return conn
}

func TestChatWSExchange(t *testing.T) {
	srv, store, sessions := newTestServer(&stubAdapter{reply: "I'm listening."})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("u1")
	conn := dialWS(t, ts, sess.ID)
	defer conn.Close()

	err := conn.WriteJSON(map[string]string{"type": "user_message", "message": "hello there"})
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply["type"] != "bot_reply" || reply["reply"] != "I'm listening." {
		t.Fatalf("reply = %v, want bot_reply", reply)
	}

	turns, err := store.TurnsSince(context.Background(), "u1", time.Time{})
	if err != nil {
		t.Fatalf("TurnsSince() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}

	cur, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cur.ExchangeCount != 1 {
		t.Fatalf("ExchangeCount = %d, want 1", cur.ExchangeCount)
	}
}

func TestChatWSInvalidFrameKeepsConnection(t *testing.T) {
	srv, _, sessions := newTestServer(&stubAdapter{reply: "ok"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("u1")
	conn := dialWS(t, ts, sess.ID)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event["type"] != "error_event" || event["code"] != "invalid_client_message" {
		t.Fatalf("event = %v, want invalid_client_message error", event)
	}

	// Connection survives: a valid frame still gets a reply.
	if err := conn.WriteJSON(map[string]string{"type": "user_message", "message": "hi"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply["type"] != "bot_reply" {
		t.Fatalf("reply = %v, want bot_reply", reply)
	}
}

func TestChatWSDisconnectEndsSessionAndFires(t *testing.T) {
	srv, _, sessions := newTestServer(&stubAdapter{reply: "ok"})

	var mu sync.Mutex
	var firedUsers []string
	sessions.SetFireHook(func(s *session.Session) {
		mu.Lock()
		firedUsers = append(firedUsers, s.UserID)
		mu.Unlock()
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	sess := sessions.Create("u1")
	conn := dialWS(t, ts, sess.ID)

	if err := conn.WriteJSON(map[string]string{"type": "user_message", "message": "hello"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply json.RawMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		cur, err := sessions.Get(sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if cur.Status == session.StatusEnded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session not ended after disconnect: %+v", cur)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(firedUsers) != 1 || firedUsers[0] != "u1" {
		t.Fatalf("fired = %v, want exactly [u1]", firedUsers)
	}
}
