package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"fanlink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the persistence boundary of the realtime layer: the user
// directory and message records live in PostgreSQL, room-event fan-out and
// suspension flags in Redis.
type Storage interface {
	GetUserByID(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	SaveUser(user *models.User) error
	UpdateUserReputation(userID string, delta int) error

	SaveMessage(msg *models.Message) error
	GetMessageByID(id string) (*models.Message, error)
	MarkMessageDelivered(id string, at time.Time) error
	MarkMessageRead(id string, at time.Time) error
	GetRoomHistory(roomID string, limit int) ([]models.Message, error)

	PublishRoomEvent(roomID string, ev models.Event) error

	SaveReport(report *models.Report) error
	GetReportsForUser(userID string, since time.Time) ([]models.Report, error)

	IsUserSuspended(userID string) (bool, error)
	SuspendUser(userID string, d time.Duration) error
	LiftSuspension(userID string) error
}

// Service is the gorm + redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetUserByID returns the user, or nil without error when not found.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to load user %s: %v", id, err)
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername returns the user, or nil without error when not found.
func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to load user %q: %v", username, err)
		return nil, err
	}
	return &user, nil
}

// SaveUser creates or updates a directory user.
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// UpdateUserReputation adjusts the reputation score by delta, clamping at
// the configured floor.
func (s *Service) UpdateUserReputation(userID string, delta int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("reputation_score", gorm.Expr("GREATEST(reputation_score + ?, 0)", delta)).Error
}

// SaveMessage persists a new direct message. The generated ID is written
// back into msg so it can be broadcast.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", msg.RoomID, err)
		return err
	}
	return nil
}

// GetMessageByID returns the message, or nil without error when not found.
func (s *Service) GetMessageByID(id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to load message %s: %v", id, err)
		return nil, err
	}
	return &msg, nil
}

// MarkMessageDelivered records the delivery timestamp.
func (s *Service) MarkMessageDelivered(id string, at time.Time) error {
	return s.DB.Model(&models.Message{}).
		Where("id = ?", id).
		Update("delivered_at", at).Error
}

// MarkMessageRead records the read timestamp.
func (s *Service) MarkMessageRead(id string, at time.Time) error {
	return s.DB.Model(&models.Message{}).
		Where("id = ?", id).
		Update("read_at", at).Error
}

// GetRoomHistory returns up to limit most recent messages of a room,
// oldest first.
func (s *Service) GetRoomHistory(roomID string, limit int) ([]models.Message, error) {
	var recent []models.Message
	err := s.DB.Where("room_id = ?", roomID).
		Order("created_at desc").
		Limit(limit).
		Find(&recent).Error
	if err != nil {
		log.Printf("ERROR: Failed to get history for room %s: %v", roomID, err)
		return nil, err
	}
	// Reverse into chronological order for replay.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// PublishRoomEvent publishes a room-scoped event to Redis Pub/Sub so every
// node can fan it out to its local subscribers.
func (s *Service) PublishRoomEvent(roomID string, ev models.Event) error {
	payload, err := json.Marshal(models.RoomEvent{RoomID: roomID, Event: ev})
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, "room:"+roomID, payload).Err()
}

// SubscribeRoomEvents subscribes to every room channel.
func (s *Service) SubscribeRoomEvents() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "room:*")
}

// SaveReport persists an abuse report.
func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = "new"
	}
	if err := s.DB.Create(report).Error; err != nil {
		log.Printf("ERROR: Failed to save report for message %s: %v", report.MessageID, err)
		return err
	}
	return nil
}

// GetReportsForUser returns reports filed against a user since the cutoff.
func (s *Service) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.Where("reported_user_id = ? AND created_at > ?", userID, since).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// IsUserSuspended checks the suspension flag in Redis.
func (s *Service) IsUserSuspended(userID string) (bool, error) {
	status, err := s.Redis.Get(s.Ctx, suspendKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// SuspendUser sets the suspension flag with a TTL; the flag expires on its
// own when the suspension ends.
func (s *Service) SuspendUser(userID string, d time.Duration) error {
	return s.Redis.Set(s.Ctx, suspendKey(userID), "suspended", d).Err()
}

// LiftSuspension clears the flag early.
func (s *Service) LiftSuspension(userID string) error {
	return s.Redis.Del(s.Ctx, suspendKey(userID)).Err()
}

func suspendKey(userID string) string {
	return "suspend:" + userID
}
