package relay

import (
	"log/slog"
	"sync"
	"time"
)

// Session records one live remote-actor connection.
type Session struct {
	Key         string
	ConnectedAt time.Time
}

// SessionHub tracks which remote-actor sessions currently have a live
// channel. The transport registers a session when the actor connects and
// removes it on disconnect; Issue refuses to send to an unregistered key.
type SessionHub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewSessionHub creates an empty session hub.
func NewSessionHub(logger *slog.Logger) *SessionHub {
	return &SessionHub{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Register marks a session key as live. Re-registering an existing key
// refreshes its connection time (actor reconnects reuse the key).
func (h *SessionHub) Register(key string) {
	h.mu.Lock()
	h.sessions[key] = &Session{Key: key, ConnectedAt: time.Now()}
	h.mu.Unlock()

	h.logger.Info("Remote actor session registered",
		slog.String("session_key", key),
	)
}

// Unregister removes a session key.
func (h *SessionHub) Unregister(key string) {
	h.mu.Lock()
	_, existed := h.sessions[key]
	delete(h.sessions, key)
	h.mu.Unlock()

	if existed {
		h.logger.Info("Remote actor session unregistered",
			slog.String("session_key", key),
		)
	}
}

// IsLive reports whether the session key has a live channel.
func (h *SessionHub) IsLive(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[key]
	return ok
}

// LiveKeys returns a snapshot of the registered session keys.
func (h *SessionHub) LiveKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.sessions))
	for key := range h.sessions {
		keys = append(keys, key)
	}
	return keys
}
