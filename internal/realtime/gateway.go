package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"fanlink/backend/internal/config"
	"fanlink/backend/internal/models"
	"fanlink/backend/internal/moderation"
	"fanlink/backend/internal/storage"

	"github.com/google/uuid"
)

// TokenValidator is the credential-verification boundary (auth.Service in
// production).
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// MessageReporter files abuse reports (moderation.Service in production).
type MessageReporter interface {
	ReportMessage(reporterID, messageID, reason string) error
}

// Gateway authenticates inbound connections, wires their sessions into the
// realtime components, dispatches their events, and unwinds everything on
// disconnect. No business event reaches any component before Authenticate
// has succeeded.
type Gateway struct {
	hub       *Hub
	presence  *PresenceRegistry
	router    *Router
	typing    *TypingTracker
	pipeline  *Pipeline
	relay     *StreamRelay
	storage   storage.Storage
	validator TokenValidator
	reporter  MessageReporter
}

func NewGateway(
	hub *Hub,
	presence *PresenceRegistry,
	router *Router,
	typing *TypingTracker,
	pipeline *Pipeline,
	relay *StreamRelay,
	s storage.Storage,
	validator TokenValidator,
	reporter MessageReporter,
) *Gateway {
	return &Gateway{
		hub:       hub,
		presence:  presence,
		router:    router,
		typing:    typing,
		pipeline:  pipeline,
		relay:     relay,
		storage:   s,
		validator: validator,
		reporter:  reporter,
	}
}

// Authenticate resolves a handshake token into a directory user. Failures
// are connection-fatal.
func (g *Gateway) Authenticate(token string) (*models.User, error) {
	if token == "" {
		return nil, NewError(CodeAuthRequired, "handshake token missing")
	}
	userID, err := g.validator.ValidateToken(token)
	if err != nil {
		return nil, NewError(CodeAuthInvalid, "token invalid or expired")
	}

	user, err := g.storage.GetUserByID(userID)
	if err != nil {
		return nil, NewError(CodeInternal, "directory lookup failed")
	}
	if user == nil {
		return nil, NewError(CodeAuthInvalid, "unknown account")
	}

	suspended, err := g.storage.IsUserSuspended(userID)
	if err != nil {
		return nil, NewError(CodeInternal, "suspension lookup failed")
	}
	if suspended {
		return nil, NewError(CodeAccountSuspended, "account is suspended")
	}
	return user, nil
}

// NewSession builds the per-connection context for an authenticated user.
func (g *Gateway) NewSession(user *models.User) *models.Session {
	now := time.Now()
	return &models.Session{
		UserID:        user.ID,
		ConnectionID:  uuid.New().String(),
		User:          user.Summary(),
		EstablishedAt: now,
		LastSeenAt:    now,
		ActiveRoomIDs: make(map[string]struct{}),
	}
}

// HandleConnect registers the authenticated connection, records presence
// (last device wins), tells everyone else the user came online, and
// acknowledges the handshake.
func (g *Gateway) HandleConnect(c Client) {
	sess := c.Session()
	g.hub.RegisterCh <- c

	g.presence.Upsert(models.PresenceEntry{
		UserID:       sess.UserID,
		ConnectionID: sess.ConnectionID,
		LastSeenAt:   sess.EstablishedAt,
		User:         sess.User,
	})

	g.hub.BroadcastAll(models.NewEvent(models.EventUserOnline, models.PresenceBroadcast{
		UserID:   sess.UserID,
		LastSeen: sess.EstablishedAt,
		User:     sess.User,
	}), sess.ConnectionID)

	g.send(c, models.NewEvent(models.EventAuthSuccess, models.AuthSuccessPayload{
		UserID: sess.UserID,
		User:   sess.User,
	}))
}

// HandleDisconnect unwinds all per-connection bookkeeping: typing entries,
// stream membership, room subscriptions, the presence entry, and the hub
// registration. Disconnect is the only cancellation signal in the system.
func (g *Gateway) HandleDisconnect(c Client) {
	sess := c.Session()

	g.typing.StopAllForConnection(sess.ConnectionID)
	g.relay.HandleDisconnect(sess.ConnectionID)
	g.router.LeaveAll(c)

	if g.presence.Remove(sess.UserID, sess.ConnectionID) {
		g.hub.BroadcastAll(models.NewEvent(models.EventUserOffline, models.PresenceBroadcast{
			UserID:   sess.UserID,
			LastSeen: time.Now(),
		}), sess.ConnectionID)
	}

	g.hub.UnregisterCh <- c
}

// Dispatch routes one inbound event from an authenticated connection.
// Coded failures go back on an `error` event; the connection stays open.
func (g *Gateway) Dispatch(c Client, ev models.Event) {
	sess := c.Session()

	switch ev.Name {
	case models.EventMessageSend:
		var p models.MessageSendPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if _, err := g.pipeline.Send(sess.UserID, p.RecipientID, p.Content, p.Type, p.AttachmentRef); err != nil {
			g.fail(c, err)
		}

	case models.EventMessageMarkRead:
		var p models.MarkReadPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if _, err := g.pipeline.MarkRead(sess.UserID, p.MessageID); err != nil {
			g.fail(c, err)
		}

	case models.EventMessageReport:
		var p models.ReportPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.reporter.ReportMessage(sess.UserID, p.MessageID, p.Reason); err != nil {
			g.fail(c, reportError(err))
		}

	case models.EventConversationJoin:
		var p models.ConversationPayload
		if !g.decode(c, ev, &p) {
			return
		}
		roomID := g.router.Join(c, p.ConversationWith)
		history, err := g.pipeline.History(roomID, config.HistoryReplayLimit)
		if err != nil {
			g.fail(c, err)
			return
		}
		g.send(c, models.NewEvent(models.EventMessageHistory, models.HistoryPayload{
			RoomID:   roomID,
			Messages: history,
		}))

	case models.EventConversationLeave:
		var p models.ConversationPayload
		if !g.decode(c, ev, &p) {
			return
		}
		g.router.Leave(c, p.ConversationWith)

	case models.EventTypingStart:
		var p models.ConversationPayload
		if !g.decode(c, ev, &p) {
			return
		}
		roomID := RoomID(sess.UserID, p.ConversationWith)
		g.typing.Start(roomID, sess.UserID, sess.User.DisplayName, sess.ConnectionID)

	case models.EventTypingStop:
		var p models.ConversationPayload
		if !g.decode(c, ev, &p) {
			return
		}
		g.typing.Stop(RoomID(sess.UserID, p.ConversationWith), sess.UserID)

	case models.EventPresenceUpdate:
		sess.LastSeenAt = time.Now()
		g.presence.Heartbeat(sess.UserID)

	case models.EventStreamJoin:
		var p models.StreamJoinPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.relay.Join(p.StreamID, sess.ConnectionID, sess.UserID, p.IsOwner); err != nil {
			g.fail(c, err)
		}

	case models.EventStreamLeave:
		var p models.StreamActionPayload
		if !g.decode(c, ev, &p) {
			return
		}
		g.relay.Leave(p.StreamID, sess.ConnectionID)

	case models.EventStartStream:
		var p models.StreamActionPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.relay.StartStream(p.StreamID, sess.ConnectionID); err != nil {
			g.fail(c, err)
		}

	case models.EventStopStream:
		var p models.StreamActionPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.relay.StopStream(p.StreamID, sess.ConnectionID); err != nil {
			g.fail(c, err)
		}

	case models.EventStreamQualityChange:
		var p models.QualityChangePayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.relay.ChangeQuality(p.StreamID, sess.ConnectionID, p.Quality, p.Bitrate); err != nil {
			g.fail(c, err)
		}

	case models.EventOffer, models.EventAnswer, models.EventICECandidate:
		var p models.SignalPayload
		if !g.decode(c, ev, &p) {
			return
		}
		if err := g.relay.Relay(ev.Name, sess.ConnectionID, sess.UserID, p); err != nil {
			g.fail(c, err)
		}

	case models.EventHandshake:
		// Already authenticated; a repeated handshake is ignored.

	default:
		g.sendError(c, NewError(CodeMalformedPayload, "unsupported event "+ev.Name))
	}
}

// reportError translates moderation failures into protocol codes.
func reportError(err error) error {
	switch {
	case errors.Is(err, moderation.ErrUnknownMessage):
		return NewError(CodeMessageNotFound, "unknown message id")
	case errors.Is(err, moderation.ErrNotParticipant):
		return NewError(CodeUnauthorizedReport, "only the recipient may report a message")
	case errors.Is(err, moderation.ErrUnknownReason):
		return NewError(CodeMalformedPayload, "unknown report reason")
	default:
		return err
	}
}

func (g *Gateway) decode(c Client, ev models.Event, out any) bool {
	if err := json.Unmarshal(ev.Data, out); err != nil {
		g.sendError(c, NewError(CodeMalformedPayload, "bad payload for "+ev.Name))
		return false
	}
	return true
}

// fail reports a coded error to the client; anything uncoded is logged and
// surfaced as INTERNAL_ERROR.
func (g *Gateway) fail(c Client, err error) {
	if coded, ok := err.(*Error); ok {
		g.sendError(c, coded)
		return
	}
	log.Printf("gateway: unexpected error for %s: %v", c.Session().ConnectionID, err)
	g.sendError(c, NewError(CodeInternal, "internal error"))
}

func (g *Gateway) sendError(c Client, e *Error) {
	g.send(c, models.NewEvent(models.EventError, e.Payload()))
}

func (g *Gateway) send(c Client, ev models.Event) {
	select {
	case c.SendChannel() <- ev:
	default:
		log.Printf("gateway: send buffer full, dropping %s for %s",
			ev.Name, c.Session().ConnectionID)
	}
}
