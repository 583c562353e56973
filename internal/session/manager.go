package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// TriggerState is the per-session idle-summary guard. It is an explicit
// state machine rather than a bare flag so the at-most-once contract stays
// auditable: Idle -> Fired on timeout or session end, Fired -> Idle only
// when a new exchange starts a fresh inactivity period.
type TriggerState string

const (
	TriggerIdle  TriggerState = "idle"
	TriggerFired TriggerState = "fired"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID             string       `json:"session_id"`
	UserID         string       `json:"user_id"`
	Status         Status       `json:"status"`
	TriggerState   TriggerState `json:"trigger_state"`
	ExchangeCount  int          `json:"exchange_count"`
	StartedAt      time.Time    `json:"started_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// Manager tracks active chat sessions and decides when the idle summary
// fires for each of them.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	onFire      func(*Session)
}

func NewManager(idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
	}
}

// SetFireHook installs the callback invoked when a session's idle summary
// should be generated. The hook runs outside the manager lock.
func (m *Manager) SetFireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFire = hook
}

func (m *Manager) Create(userID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusActive,
		TriggerState:   TriggerIdle,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// RecordExchange marks a completed user exchange: activity is fresh, a new
// inactivity period begins, and the fired guard is cleared.
func (m *Manager) RecordExchange(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.ExchangeCount++
	s.TriggerState = TriggerIdle
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End handles the session-termination signal. When the session had at least
// one exchange and its trigger has not fired for the current inactivity
// period, the fire hook runs one last time.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	var fired *Session
	if s.Status == StatusActive && s.TriggerState == TriggerIdle && s.ExchangeCount >= 1 {
		s.TriggerState = TriggerFired
		fired = clone(s)
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	out := clone(s)
	hook := m.onFire
	m.mu.Unlock()

	if fired != nil && hook != nil {
		hook(fired)
	}
	return out, nil
}

// StartJanitor periodically fires idle summaries for sessions whose
// inactivity exceeded the idle timeout.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.fireIdle()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) fireIdle() {
	now := time.Now().UTC()
	var fired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status != StatusActive {
			// Ended sessions are kept around for one idle period so a late
			// Get still resolves, then evicted.
			if now.Sub(s.LastActivityAt) >= m.idleTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if s.TriggerState != TriggerIdle || s.ExchangeCount < 1 {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.idleTimeout {
			continue
		}
		// The session stays active: a later message clears the guard and
		// starts the next inactivity period.
		s.TriggerState = TriggerFired
		fired = append(fired, clone(s))
	}
	hook := m.onFire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range fired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
