package realtime

import (
	"sync"
	"time"

	"fanlink/backend/internal/models"
)

// PresenceRegistry is the authoritative in-memory map of users with a live
// connection. It is a cache, not a source of truth: contents are lost on
// restart and every client is expected to reconnect.
//
// Policy: the last connecting device for a user wins. A new connection for
// the same user silently supersedes the previous entry.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]models.PresenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]models.PresenceEntry)}
}

// Upsert inserts or replaces the entry for entry.UserID.
func (r *PresenceRegistry) Upsert(entry models.PresenceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.LastSeenAt.IsZero() {
		entry.LastSeenAt = time.Now()
	}
	r.entries[entry.UserID] = entry
}

// Remove deletes the user's entry, but only if connectionID still owns it.
// A stale disconnect from a superseded connection must not evict the newer
// session. Returns whether an entry was removed.
func (r *PresenceRegistry) Remove(userID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[userID]
	if !ok || entry.ConnectionID != connectionID {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Heartbeat refreshes LastSeenAt without touching the connection id.
func (r *PresenceRegistry) Heartbeat(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[userID]
	if !ok {
		return
	}
	entry.LastSeenAt = time.Now()
	r.entries[userID] = entry
}

// IsOnline reports whether the user currently holds a live connection.
func (r *PresenceRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[userID]
	return ok
}

// List returns a snapshot of all entries.
func (r *PresenceRegistry) List() []models.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PresenceEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Clear drops every entry. Called at shutdown.
func (r *PresenceRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]models.PresenceEntry)
}
