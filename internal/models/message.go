package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message delivery states, derived from the timestamp columns.
const (
	MessageStateSent      = "sent"
	MessageStateDelivered = "delivered"
	MessageStateRead      = "read"
)

// Message is a direct message persisted in PostgreSQL. The delivery pipeline
// owns its state transitions: CreatedAt is set on send, DeliveredAt when the
// recipient was online at send time, ReadAt once by the recipient.
type Message struct {
	ID          string `gorm:"primaryKey" json:"id"`
	RoomID      string `gorm:"type:text;not null;index:idx_room_created" json:"room_id"`
	SenderID    string `gorm:"type:text;not null;index" json:"sender_id"`
	RecipientID string `gorm:"type:text;not null;index" json:"recipient_id"`
	Content     string `gorm:"type:text;not null" json:"content"`
	// Type indicates the kind of message (e.g., "text", "media", "tip").
	Type string `gorm:"type:text;not null" json:"type"`
	// AttachmentRef points at an upload owned by the media service.
	AttachmentRef string `gorm:"type:text" json:"attachment_ref,omitempty"`

	CreatedAt   time.Time  `gorm:"index:idx_room_created" json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// BeforeCreate assigns a UUID when the ID is unset.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// State reports the furthest delivery state the message has reached.
func (m *Message) State() string {
	switch {
	case m.ReadAt != nil:
		return MessageStateRead
	case m.DeliveredAt != nil:
		return MessageStateDelivered
	default:
		return MessageStateSent
	}
}
