// Package moderation turns abuse reports on direct messages into reputation
// penalties and, past the configured thresholds, timed account suspensions.
package moderation

import (
	"errors"
	"time"

	"fanlink/backend/internal/config"
	"fanlink/backend/internal/models"
	"fanlink/backend/internal/storage"
)

var (
	ErrUnknownMessage = errors.New("moderation: unknown message")
	ErrNotParticipant = errors.New("moderation: reporter did not receive this message")
	ErrUnknownReason  = errors.New("moderation: unknown report reason")
)

// Service handles the business logic for message reports.
type Service struct {
	Storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// ReportMessage files a report from the recipient of a message, applies the
// reputation penalty for the reason, and checks the suspension thresholds.
func (s *Service) ReportMessage(reporterID, messageID, reason string) error {
	weight, ok := config.ReportWeights[reason]
	if !ok {
		return ErrUnknownReason
	}

	msg, err := s.Storage.GetMessageByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrUnknownMessage
	}
	if msg.RecipientID != reporterID {
		return ErrNotParticipant
	}

	report := &models.Report{
		MessageID:      messageID,
		ReporterID:     reporterID,
		ReportedUserID: msg.SenderID,
		Reason:         reason,
	}
	if err := s.Storage.SaveReport(report); err != nil {
		return err
	}
	if err := s.Storage.UpdateUserReputation(msg.SenderID, -weight); err != nil {
		return err
	}

	return s.CheckForSuspension(msg.SenderID)
}

// CheckForSuspension suspends a user whose reputation fell under the floor
// or who accumulated too many reports inside the frequency window.
func (s *Service) CheckForSuspension(userID string) error {
	user, err := s.Storage.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if user.ReputationScore < config.SuspendThresholdReputation {
		return s.applySuspension(user)
	}

	reports, err := s.Storage.GetReportsForUser(userID, time.Now().Add(-config.SuspendFrequencyWindow))
	if err != nil {
		return err
	}
	if len(reports) > config.SuspendThresholdFrequency {
		return s.applySuspension(user)
	}

	return nil
}

// applySuspension escalates the duration with each repeat offense.
func (s *Service) applySuspension(user *models.User) error {
	user.SuspensionLevel++
	if err := s.Storage.SaveUser(user); err != nil {
		return err
	}
	return s.Storage.SuspendUser(user.ID, suspensionDuration(user.SuspensionLevel))
}

func suspensionDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.SuspendLevel1Duration
	case 2:
		return config.SuspendLevel2Duration
	default:
		return config.SuspendLevel3Duration
	}
}
