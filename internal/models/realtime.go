package models

import (
	"encoding/json"
	"time"
)

// Event names exchanged over the WebSocket protocol.
const (
	EventHandshake   = "handshake"
	EventAuthSuccess = "auth:success"
	EventAuthError   = "auth:error"

	EventMessageSend      = "message:send"
	EventMessageNew       = "message:new"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
	EventMessageMarkRead  = "message:mark_read"
	EventMessageHistory   = "message:history"
	EventMessageReport    = "message:report"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"

	EventPresenceUpdate = "presence:update"
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"

	EventStreamJoin          = "stream:join"
	EventStreamLeave         = "stream:leave"
	EventStartStream         = "start-stream"
	EventStopStream          = "stop-stream"
	EventStreamQualityChange = "stream-quality-change"
	EventOffer               = "offer"
	EventAnswer              = "answer"
	EventICECandidate        = "ice-candidate"
	EventViewerJoined        = "viewer-joined"
	EventViewerCountUpdate   = "viewer-count-update"
	EventStreamEnded         = "stream-ended"

	EventError = "error"
)

// Event is the wire envelope for every frame in both directions.
// Data stays raw until the handler for the event name decodes it.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an outbound event, marshalling the payload. Payloads are
// our own structs, so a marshal failure is a programming error.
func NewEvent(name string, payload any) Event {
	if payload == nil {
		return Event{Name: name}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic("models: unmarshalable event payload: " + err.Error())
	}
	return Event{Name: name, Data: data}
}

// RoomEvent is the unit published through Redis pub/sub for fan-out of
// room-scoped message events across nodes.
type RoomEvent struct {
	RoomID string `json:"room_id"`
	Event  Event  `json:"event"`
}

// Session is the per-connection context built by the gateway after a
// successful handshake. ActiveRoomIDs is touched only from the connection's
// own event loop, so it needs no locking.
type Session struct {
	UserID        string
	ConnectionID  string
	User          UserSummary
	EstablishedAt time.Time
	LastSeenAt    time.Time
	ActiveRoomIDs map[string]struct{}
}

// PresenceEntry is the live-connection record held by the presence registry.
type PresenceEntry struct {
	UserID       string      `json:"user_id"`
	ConnectionID string      `json:"-"`
	LastSeenAt   time.Time   `json:"last_seen_at"`
	User         UserSummary `json:"user"`
}

// StreamSnapshot is a read-only view of a live stream session, used by
// diagnostics and tests.
type StreamSnapshot struct {
	StreamID          string `json:"stream_id"`
	OwnerConnectionID string `json:"-"`
	OwnerUserID       string `json:"owner_user_id"`
	ViewerCount       int    `json:"viewer_count"`
	IsLive            bool   `json:"is_live"`
	Quality           string `json:"quality,omitempty"`
}

// Client → server payloads.

type HandshakePayload struct {
	Token string `json:"token"`
}

type MessageSendPayload struct {
	RecipientID   string `json:"recipient_id"`
	Content       string `json:"content"`
	Type          string `json:"type"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

type MarkReadPayload struct {
	MessageID string `json:"message_id"`
}

type ReportPayload struct {
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
}

type ConversationPayload struct {
	ConversationWith string `json:"conversation_with"`
}

type StreamJoinPayload struct {
	StreamID string `json:"stream_id"`
	IsOwner  bool   `json:"is_owner"`
}

type StreamActionPayload struct {
	StreamID string `json:"stream_id"`
}

type QualityChangePayload struct {
	StreamID string `json:"stream_id"`
	Quality  string `json:"quality"`
	Bitrate  int    `json:"bitrate,omitempty"`
}

// SignalPayload addresses an opaque negotiation blob. Signal is never
// inspected by the relay; only the addressing fields are typed.
type SignalPayload struct {
	StreamID string          `json:"stream_id"`
	SenderID string          `json:"sender_id,omitempty"`
	TargetID string          `json:"target_id,omitempty"`
	Signal   json.RawMessage `json:"signal"`
}

// Server → client payloads.

type AuthSuccessPayload struct {
	UserID string      `json:"user_id"`
	User   UserSummary `json:"user"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type DeliveredPayload struct {
	MessageID   string    `json:"message_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type ReadPayload struct {
	MessageID string    `json:"message_id"`
	ReadAt    time.Time `json:"read_at"`
	ReadBy    string    `json:"read_by"`
}

type HistoryPayload struct {
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
}

type TypingBroadcast struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type PresenceBroadcast struct {
	UserID   string      `json:"user_id"`
	LastSeen time.Time   `json:"last_seen"`
	User     UserSummary `json:"user,omitempty"`
}

type ViewerJoinedPayload struct {
	StreamID     string `json:"stream_id"`
	ViewerID     string `json:"viewer_id"`
	TotalViewers int    `json:"total_viewers"`
}

type ViewerCountPayload struct {
	StreamID     string `json:"stream_id"`
	TotalViewers int    `json:"total_viewers"`
}

type StreamEndedPayload struct {
	StreamID string `json:"stream_id"`
}
