package realtime

// RoomID derives the canonical conversation room id for two participants.
// The pair is ordered before joining so roomID(a,b) == roomID(b,a); both
// sides always address the same broadcast group.
func RoomID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "dm:" + userA + ":" + userB
}

// Router manages per-connection conversation subscriptions. A room has no
// stored representation; its only observable state is the subscriber set
// held by the hub.
type Router struct {
	hub *Hub
}

func NewRouter(hub *Hub) *Router {
	return &Router{hub: hub}
}

// Join subscribes the connection to its conversation with otherUserID and
// records the room on the session. Returns the room id.
func (r *Router) Join(c Client, otherUserID string) string {
	sess := c.Session()
	roomID := RoomID(sess.UserID, otherUserID)
	sess.ActiveRoomIDs[roomID] = struct{}{}
	r.hub.SubscribeRoom(c, roomID)
	return roomID
}

// Leave reverses Join.
func (r *Router) Leave(c Client, otherUserID string) string {
	sess := c.Session()
	roomID := RoomID(sess.UserID, otherUserID)
	delete(sess.ActiveRoomIDs, roomID)
	r.hub.UnsubscribeRoom(c, roomID)
	return roomID
}

// LeaveAll unsubscribes the connection from every room it joined. Called on
// disconnect.
func (r *Router) LeaveAll(c Client) {
	sess := c.Session()
	for roomID := range sess.ActiveRoomIDs {
		r.hub.UnsubscribeRoom(c, roomID)
		delete(sess.ActiveRoomIDs, roomID)
	}
}
