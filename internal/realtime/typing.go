package realtime

import (
	"sync"
	"time"

	"fanlink/backend/internal/models"
)

// RoomBroadcaster is the slice of the hub the typing tracker needs.
type RoomBroadcaster interface {
	BroadcastRoom(roomID string, ev models.Event, exceptConnID string)
}

type typingKey struct {
	roomID string
	userID string
}

type typingEntry struct {
	displayName string
	connID      string
	startedAt   time.Time
}

// TypingTracker holds the ephemeral per-(room,user) "is typing" state. A
// fixed-interval sweep expires entries whose refresh is older than the
// timeout, so a client that disconnects without sending a stop cannot leave
// a permanently typing peer. One ticker covers all entries; staleness is
// bounded by one sweep interval.
type TypingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]typingEntry

	broadcaster RoomBroadcaster
	interval    time.Duration
	timeout     time.Duration
	stopCh      chan struct{}
}

func NewTypingTracker(b RoomBroadcaster, interval, timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		entries:     make(map[typingKey]typingEntry),
		broadcaster: b,
		interval:    interval,
		timeout:     timeout,
		stopCh:      make(chan struct{}),
	}
}

// Run drives the expiry sweep until Shutdown.
func (t *TypingTracker) Run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			t.sweep(now)
		case <-t.stopCh:
			return
		}
	}
}

// Shutdown stops the sweep goroutine and clears all state.
func (t *TypingTracker) Shutdown() {
	close(t.stopCh)
	t.mu.Lock()
	t.entries = make(map[typingKey]typingEntry)
	t.mu.Unlock()
}

// Start records typing state and notifies the room, excluding the typist's
// own connection. Re-invocation refreshes the timestamp.
func (t *TypingTracker) Start(roomID, userID, displayName, connID string) {
	t.mu.Lock()
	t.entries[typingKey{roomID, userID}] = typingEntry{
		displayName: displayName,
		connID:      connID,
		startedAt:   time.Now(),
	}
	t.mu.Unlock()

	t.broadcaster.BroadcastRoom(roomID, models.NewEvent(models.EventTypingStart, models.TypingBroadcast{
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: displayName,
	}), connID)
}

// Stop deletes the entry and notifies the room.
func (t *TypingTracker) Stop(roomID, userID string) {
	t.mu.Lock()
	entry, ok := t.entries[typingKey{roomID, userID}]
	if ok {
		delete(t.entries, typingKey{roomID, userID})
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	t.broadcaster.BroadcastRoom(roomID, models.NewEvent(models.EventTypingStop, models.TypingBroadcast{
		RoomID: roomID,
		UserID: userID,
	}), entry.connID)
}

// StopAllForConnection expires every entry owned by a connection,
// broadcasting synthetic stops. Called on disconnect.
func (t *TypingTracker) StopAllForConnection(connID string) {
	t.mu.Lock()
	var expired []typingKey
	for key, entry := range t.entries {
		if entry.connID == connID {
			expired = append(expired, key)
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()

	for _, key := range expired {
		t.broadcaster.BroadcastRoom(key.roomID, models.NewEvent(models.EventTypingStop, models.TypingBroadcast{
			RoomID: key.roomID,
			UserID: key.userID,
		}), connID)
	}
}

// IsTyping reports whether the user is currently marked as typing in a room.
func (t *TypingTracker) IsTyping(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{roomID, userID}]
	return ok
}

// sweep expires entries older than the timeout and broadcasts a synthetic
// stop for each one.
func (t *TypingTracker) sweep(now time.Time) {
	t.mu.Lock()
	var expired []typingKey
	for key, entry := range t.entries {
		if now.Sub(entry.startedAt) >= t.timeout {
			expired = append(expired, key)
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()

	for _, key := range expired {
		t.broadcaster.BroadcastRoom(key.roomID, models.NewEvent(models.EventTypingStop, models.TypingBroadcast{
			RoomID: key.roomID,
			UserID: key.userID,
		}), "")
	}
}
