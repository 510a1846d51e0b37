package realtime

import (
	"sync"

	"fanlink/backend/internal/models"
)

// ConnSender is the slice of the hub the relay needs: direct delivery to a
// single connection.
type ConnSender interface {
	SendToConn(connID string, ev models.Event) bool
}

// streamSession tracks one live stream: a single owning connection and the
// set of viewing connections, keyed by connection id with the user id as
// value for signal addressing.
type streamSession struct {
	streamID    string
	ownerConnID string
	ownerUserID string
	viewers     map[string]string
	isLive      bool
	quality     string
	bitrate     int
}

// StreamRelay routes session-negotiation payloads between a stream's owner
// and its viewers. The negotiation blobs are opaque: the relay reads only
// the addressing fields and never the signal content.
type StreamRelay struct {
	mu      sync.Mutex
	streams map[string]*streamSession
	sender  ConnSender
}

func NewStreamRelay(sender ConnSender) *StreamRelay {
	return &StreamRelay{
		streams: make(map[string]*streamSession),
		sender:  sender,
	}
}

// Join attaches a connection to a stream. An owner claim on a stream that
// already has a different owner is rejected; there is no ownership transfer.
// A viewer join notifies the owner and refreshes every viewer's count.
func (r *StreamRelay) Join(streamID, connID, userID string, isOwner bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.streams[streamID]
	if !ok {
		ss = &streamSession{streamID: streamID, viewers: make(map[string]string)}
		r.streams[streamID] = ss
	}

	if isOwner {
		if ss.ownerConnID != "" && ss.ownerConnID != connID {
			return NewError(CodeStreamOwnerConflict, "stream already has an owner")
		}
		ss.ownerConnID = connID
		ss.ownerUserID = userID
		return nil
	}

	ss.viewers[connID] = userID
	if ss.ownerConnID != "" {
		r.sender.SendToConn(ss.ownerConnID, models.NewEvent(models.EventViewerJoined, models.ViewerJoinedPayload{
			StreamID:     streamID,
			ViewerID:     userID,
			TotalViewers: len(ss.viewers),
		}))
	}
	r.broadcastViewerCount(ss)
	return nil
}

// Leave detaches a connection from one stream. An owner leaving ends the
// stream for everyone.
func (r *StreamRelay) Leave(streamID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.streams[streamID]
	if !ok {
		return
	}
	r.detach(ss, connID)
}

// StartStream marks the stream live and tells the viewers. Owner only.
func (r *StreamRelay) StartStream(streamID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, err := r.ownedStream(streamID, connID)
	if err != nil {
		return err
	}
	ss.isLive = true
	for viewerConn := range ss.viewers {
		r.sender.SendToConn(viewerConn, models.NewEvent(models.EventStartStream, models.StreamActionPayload{
			StreamID: streamID,
		}))
	}
	return nil
}

// StopStream ends the stream: every viewer receives stream-ended and the
// session is removed. Owner only.
func (r *StreamRelay) StopStream(streamID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, err := r.ownedStream(streamID, connID)
	if err != nil {
		return err
	}
	r.endStream(ss)
	return nil
}

// ChangeQuality records the owner's new encoder settings and forwards them
// to the viewers. Owner only.
func (r *StreamRelay) ChangeQuality(streamID, connID, quality string, bitrate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, err := r.ownedStream(streamID, connID)
	if err != nil {
		return err
	}
	ss.quality = quality
	ss.bitrate = bitrate
	for viewerConn := range ss.viewers {
		r.sender.SendToConn(viewerConn, models.NewEvent(models.EventStreamQualityChange, models.QualityChangePayload{
			StreamID: streamID,
			Quality:  quality,
			Bitrate:  bitrate,
		}))
	}
	return nil
}

// Relay forwards an opaque negotiation payload. A viewer's signal goes to
// the owner; the owner's signal goes to the viewer addressed by TargetID.
// The sender identity is stamped on; the blob passes through untouched.
func (r *StreamRelay) Relay(eventName, connID, userID string, payload models.SignalPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.streams[payload.StreamID]
	if !ok {
		return NewError(CodeStreamNotFound, "unknown stream id")
	}

	payload.SenderID = userID
	forwarded := models.NewEvent(eventName, payload)

	if connID == ss.ownerConnID {
		for viewerConn, viewerUser := range ss.viewers {
			if viewerUser == payload.TargetID {
				r.sender.SendToConn(viewerConn, forwarded)
				return nil
			}
		}
		return nil // target viewer already gone; negotiation is best-effort
	}

	if ss.ownerConnID != "" {
		r.sender.SendToConn(ss.ownerConnID, forwarded)
	}
	return nil
}

// HandleDisconnect unwinds every stream membership of a connection. Called
// by the gateway on teardown.
func (r *StreamRelay) HandleDisconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ss := range r.streams {
		r.detach(ss, connID)
	}
}

// Snapshot returns a read-only view of one stream session.
func (r *StreamRelay) Snapshot(streamID string) (models.StreamSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.streams[streamID]
	if !ok {
		return models.StreamSnapshot{}, false
	}
	return models.StreamSnapshot{
		StreamID:          ss.streamID,
		OwnerConnectionID: ss.ownerConnID,
		OwnerUserID:       ss.ownerUserID,
		ViewerCount:       len(ss.viewers),
		IsLive:            ss.isLive,
		Quality:           ss.quality,
	}, true
}

// Shutdown ends every stream. Called at process shutdown.
func (r *StreamRelay) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ss := range r.streams {
		r.endStream(ss)
	}
}

// detach removes one connection from a session, with owner departure ending
// the stream and viewer departure shrinking the count. Caller holds the lock.
func (r *StreamRelay) detach(ss *streamSession, connID string) {
	if ss.ownerConnID == connID {
		r.endStream(ss)
		return
	}
	if _, ok := ss.viewers[connID]; !ok {
		return
	}
	delete(ss.viewers, connID)
	if ss.ownerConnID != "" {
		r.sender.SendToConn(ss.ownerConnID, models.NewEvent(models.EventViewerCountUpdate, models.ViewerCountPayload{
			StreamID:     ss.streamID,
			TotalViewers: len(ss.viewers),
		}))
	}
	r.broadcastViewerCount(ss)
}

// endStream notifies all viewers and removes the session. Caller holds the
// lock.
func (r *StreamRelay) endStream(ss *streamSession) {
	for viewerConn := range ss.viewers {
		r.sender.SendToConn(viewerConn, models.NewEvent(models.EventStreamEnded, models.StreamEndedPayload{
			StreamID: ss.streamID,
		}))
	}
	delete(r.streams, ss.streamID)
}

// broadcastViewerCount refreshes the count for every viewer. Caller holds
// the lock.
func (r *StreamRelay) broadcastViewerCount(ss *streamSession) {
	ev := models.NewEvent(models.EventViewerCountUpdate, models.ViewerCountPayload{
		StreamID:     ss.streamID,
		TotalViewers: len(ss.viewers),
	})
	for viewerConn := range ss.viewers {
		r.sender.SendToConn(viewerConn, ev)
	}
}

// ownedStream resolves a stream and checks that connID owns it. Caller
// holds the lock.
func (r *StreamRelay) ownedStream(streamID, connID string) (*streamSession, error) {
	ss, ok := r.streams[streamID]
	if !ok {
		return nil, NewError(CodeStreamNotFound, "unknown stream id")
	}
	if ss.ownerConnID != connID {
		return nil, NewError(CodeNotStreamOwner, "caller does not own this stream")
	}
	return ss, nil
}
