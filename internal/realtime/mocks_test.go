package realtime_test

import (
	"sync"
	"time"

	"fanlink/backend/internal/models"
	"fanlink/backend/internal/realtime"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) UpdateUserReputation(userID string, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	if msg.ID == "" {
		msg.ID = "msg-generated"
	}
	return args.Error(0)
}

func (m *MockStorage) GetMessageByID(id string) (*models.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) MarkMessageDelivered(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockStorage) MarkMessageRead(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockStorage) GetRoomHistory(roomID string, limit int) ([]models.Message, error) {
	args := m.Called(roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) PublishRoomEvent(roomID string, ev models.Event) error {
	args := m.Called(roomID, ev)
	return args.Error(0)
}

func (m *MockStorage) SaveReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	args := m.Called(userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) IsUserSuspended(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SuspendUser(userID string, d time.Duration) error {
	args := m.Called(userID, d)
	return args.Error(0)
}

func (m *MockStorage) LiftSuspension(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// mockClient is a test double for the realtime.Client interface with a
// buffered send channel so hub pushes never block.
type mockClient struct {
	sess *models.Session
	send chan models.Event
}

func newMockClient(userID, connID string) *mockClient {
	return &mockClient{
		sess: &models.Session{
			UserID:        userID,
			ConnectionID:  connID,
			User:          models.UserSummary{UserID: userID, Username: userID, DisplayName: userID},
			EstablishedAt: time.Now(),
			LastSeenAt:    time.Now(),
			ActiveRoomIDs: make(map[string]struct{}),
		},
		send: make(chan models.Event, 32),
	}
}

func (c *mockClient) Session() *models.Session         { return c.sess }
func (c *mockClient) SendChannel() chan<- models.Event { return c.send }
func (c *mockClient) Run()                             {}
func (c *mockClient) Close()                           {}

// drain returns every event buffered so far.
func (c *mockClient) drain() []models.Event {
	var events []models.Event
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// received reports whether an event with the name is buffered, consuming
// everything before it.
func (c *mockClient) received(name string) bool {
	for _, ev := range c.drain() {
		if ev.Name == name {
			return true
		}
	}
	return false
}

// recordingBroadcaster captures room broadcasts for assertions. The sweep
// goroutine broadcasts concurrently with test assertions, hence the lock.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

type broadcastCall struct {
	roomID string
	event  models.Event
	except string
}

func (r *recordingBroadcaster) BroadcastRoom(roomID string, ev models.Event, exceptConnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{roomID: roomID, event: ev, except: exceptConnID})
}

func (r *recordingBroadcaster) snapshot() []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastCall(nil), r.calls...)
}

// recordingSender captures direct sends per connection id.
type recordingSender struct {
	sent map[string][]models.Event
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]models.Event)}
}

func (r *recordingSender) SendToConn(connID string, ev models.Event) bool {
	r.sent[connID] = append(r.sent[connID], ev)
	return true
}

var _ realtime.Client = (*mockClient)(nil)
var _ realtime.RoomBroadcaster = (*recordingBroadcaster)(nil)
var _ realtime.ConnSender = (*recordingSender)(nil)
