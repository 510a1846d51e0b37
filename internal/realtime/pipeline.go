package realtime

import (
	"log"
	"strings"
	"time"

	"fanlink/backend/internal/models"
	"fanlink/backend/internal/storage"
)

// Pipeline orchestrates the direct-message state machine:
// created → sent → delivered (optional) → read (optional).
//
// Persistence is authoritative; the room broadcasts that follow it are a
// best-effort notification channel published through the storage layer's
// pub/sub so every node fans them out.
type Pipeline struct {
	storage  storage.Storage
	presence *PresenceRegistry
}

func NewPipeline(s storage.Storage, presence *PresenceRegistry) *Pipeline {
	return &Pipeline{storage: s, presence: presence}
}

// Send validates, persists, and announces a new direct message. If the
// recipient is online at send time the message is additionally marked
// delivered; deliverability is evaluated exactly once, here — a recipient
// connecting later does not retroactively deliver earlier messages.
func (p *Pipeline) Send(senderID, recipientID, content, msgType, attachmentRef string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewError(CodeEmptyContent, "message content is empty")
	}

	recipient, err := p.storage.GetUserByID(recipientID)
	if err != nil {
		return nil, NewError(CodeInternal, "directory lookup failed")
	}
	if recipient == nil {
		return nil, NewError(CodeRecipientNotFound, "recipient does not exist")
	}

	if msgType == "" {
		msgType = "text"
	}
	msg := &models.Message{
		RoomID:        RoomID(senderID, recipientID),
		SenderID:      senderID,
		RecipientID:   recipientID,
		Content:       content,
		Type:          msgType,
		AttachmentRef: attachmentRef,
		CreatedAt:     time.Now(),
	}
	if err := p.storage.SaveMessage(msg); err != nil {
		return nil, NewError(CodeInternal, "failed to persist message")
	}

	if p.presence.IsOnline(recipientID) {
		now := time.Now()
		msg.DeliveredAt = &now
		if err := p.storage.MarkMessageDelivered(msg.ID, now); err != nil {
			// The delivered flag is advisory; the message itself is saved.
			log.Printf("pipeline: failed to mark %s delivered: %v", msg.ID, err)
			msg.DeliveredAt = nil
		}
	}

	p.publish(msg.RoomID, models.NewEvent(models.EventMessageNew, msg))
	if msg.DeliveredAt != nil {
		p.publish(msg.RoomID, models.NewEvent(models.EventMessageDelivered, models.DeliveredPayload{
			MessageID:   msg.ID,
			DeliveredAt: *msg.DeliveredAt,
		}))
	}

	return msg, nil
}

// MarkRead records the recipient's read acknowledgment. Only the recipient
// may acknowledge, and only the first acknowledgment broadcasts; repeats are
// idempotent no-ops.
func (p *Pipeline) MarkRead(callerID, messageID string) (*models.Message, error) {
	msg, err := p.storage.GetMessageByID(messageID)
	if err != nil {
		return nil, NewError(CodeInternal, "message lookup failed")
	}
	if msg == nil {
		return nil, NewError(CodeMessageNotFound, "unknown message id")
	}
	if msg.RecipientID != callerID {
		return nil, NewError(CodeUnauthorizedReadAck, "only the recipient may mark a message read")
	}
	if msg.ReadAt != nil {
		return msg, nil
	}

	now := time.Now()
	if err := p.storage.MarkMessageRead(msg.ID, now); err != nil {
		return nil, NewError(CodeInternal, "failed to persist read state")
	}
	msg.ReadAt = &now

	p.publish(msg.RoomID, models.NewEvent(models.EventMessageRead, models.ReadPayload{
		MessageID: msg.ID,
		ReadAt:    now,
		ReadBy:    callerID,
	}))

	return msg, nil
}

// History loads the recent messages of a conversation for replay on join.
func (p *Pipeline) History(roomID string, limit int) ([]models.Message, error) {
	msgs, err := p.storage.GetRoomHistory(roomID, limit)
	if err != nil {
		return nil, NewError(CodeInternal, "failed to load history")
	}
	return msgs, nil
}

func (p *Pipeline) publish(roomID string, ev models.Event) {
	if err := p.storage.PublishRoomEvent(roomID, ev); err != nil {
		log.Printf("pipeline: failed to publish %s to %s: %v", ev.Name, roomID, err)
	}
}
