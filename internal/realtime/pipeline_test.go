package realtime_test

import (
	"testing"
	"time"

	"fanlink/backend/internal/models"
	"fanlink/backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func eventNamed(name string) any {
	return mock.MatchedBy(func(ev models.Event) bool { return ev.Name == name })
}

func onlineRegistry(userIDs ...string) *realtime.PresenceRegistry {
	reg := realtime.NewPresenceRegistry()
	for i, id := range userIDs {
		reg.Upsert(models.PresenceEntry{UserID: id, ConnectionID: "conn-" + string(rune('a'+i))})
	}
	return reg
}

func TestPipeline_SendToOnlineRecipientMarksDelivered(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, onlineRegistry("u2"))

	storageMock.On("GetUserByID", "u2").Return(&models.User{ID: "u2", Username: "u2"}, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("MarkMessageDelivered", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	storageMock.On("PublishRoomEvent", realtime.RoomID("u1", "u2"), mock.AnythingOfType("models.Event")).Return(nil)

	msg, err := pipeline.Send("u1", "u2", "hi", "text", "")

	assert.NoError(t, err)
	assert.NotNil(t, msg.DeliveredAt)
	assert.Equal(t, models.MessageStateDelivered, msg.State())
	storageMock.AssertCalled(t, "PublishRoomEvent", realtime.RoomID("u1", "u2"), eventNamed(models.EventMessageNew))
	storageMock.AssertCalled(t, "PublishRoomEvent", realtime.RoomID("u1", "u2"), eventNamed(models.EventMessageDelivered))
}

func TestPipeline_SendToOfflineRecipientStaysSent(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	storageMock.On("GetUserByID", "u3").Return(&models.User{ID: "u3", Username: "u3"}, nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("PublishRoomEvent", mock.AnythingOfType("string"), mock.AnythingOfType("models.Event")).Return(nil)

	msg, err := pipeline.Send("u1", "u3", "hello?", "text", "")

	assert.NoError(t, err)
	assert.Nil(t, msg.DeliveredAt)
	assert.Equal(t, models.MessageStateSent, msg.State())
	storageMock.AssertNotCalled(t, "MarkMessageDelivered", mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "PublishRoomEvent", mock.Anything, eventNamed(models.EventMessageDelivered))
}

func TestPipeline_SendRejectsBlankContent(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	_, err := pipeline.Send("u1", "u2", "   \n\t ", "text", "")

	var coded *realtime.Error
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, realtime.CodeEmptyContent, coded.Code)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestPipeline_SendRejectsUnknownRecipient(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	storageMock.On("GetUserByID", "nobody").Return(nil, nil)

	_, err := pipeline.Send("u1", "nobody", "hi", "text", "")

	var coded *realtime.Error
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, realtime.CodeRecipientNotFound, coded.Code)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestPipeline_MarkReadOnlyByRecipient(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	stored := &models.Message{ID: "m1", RoomID: "dm:u1:u2", SenderID: "u1", RecipientID: "u2"}
	storageMock.On("GetMessageByID", "m1").Return(stored, nil)

	_, err := pipeline.MarkRead("u1", "m1")

	var coded *realtime.Error
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, realtime.CodeUnauthorizedReadAck, coded.Code)
	assert.Nil(t, stored.ReadAt, "rejected acknowledgment must leave readAt unset")
	storageMock.AssertNotCalled(t, "MarkMessageRead", mock.Anything, mock.Anything)
}

func TestPipeline_MarkReadUnknownMessage(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	storageMock.On("GetMessageByID", "ghost").Return(nil, nil)

	_, err := pipeline.MarkRead("u2", "ghost")

	var coded *realtime.Error
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, realtime.CodeMessageNotFound, coded.Code)
}

func TestPipeline_MarkReadBroadcastsOnce(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	stored := &models.Message{ID: "m1", RoomID: "dm:u1:u2", SenderID: "u1", RecipientID: "u2"}
	storageMock.On("GetMessageByID", "m1").Return(stored, nil)
	storageMock.On("MarkMessageRead", "m1", mock.AnythingOfType("time.Time")).Return(nil)
	storageMock.On("PublishRoomEvent", "dm:u1:u2", mock.AnythingOfType("models.Event")).Return(nil)

	msg, err := pipeline.MarkRead("u2", "m1")

	assert.NoError(t, err)
	assert.NotNil(t, msg.ReadAt)
	assert.Equal(t, models.MessageStateRead, msg.State())
	storageMock.AssertNumberOfCalls(t, "PublishRoomEvent", 1)

	// Second acknowledgment is an idempotent no-op: success, no second
	// persistence write, no re-broadcast.
	again, err := pipeline.MarkRead("u2", "m1")

	assert.NoError(t, err)
	assert.Equal(t, msg.ReadAt, again.ReadAt)
	storageMock.AssertNumberOfCalls(t, "MarkMessageRead", 1)
	storageMock.AssertNumberOfCalls(t, "PublishRoomEvent", 1)
}

func TestPipeline_HistoryPassesThrough(t *testing.T) {
	storageMock := new(MockStorage)
	pipeline := realtime.NewPipeline(storageMock, realtime.NewPresenceRegistry())

	older := models.Message{ID: "m1", CreatedAt: time.Now().Add(-time.Minute)}
	newer := models.Message{ID: "m2", CreatedAt: time.Now()}
	storageMock.On("GetRoomHistory", "dm:u1:u2", 50).Return([]models.Message{older, newer}, nil)

	msgs, err := pipeline.History("dm:u1:u2", 50)

	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
}
