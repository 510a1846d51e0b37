package models

import "gorm.io/gorm"

// Report is an abuse report filed by the recipient of a direct message.
// The embedded gorm.Model provides ID and CreatedAt, which drive the
// frequency-window suspension check.
type Report struct {
	gorm.Model

	// MessageID is the reported message.
	MessageID string `gorm:"type:text;not null;index"`
	// ReporterID filed the report; ReportedUserID sent the message.
	ReporterID     string `gorm:"type:text;not null"`
	ReportedUserID string `gorm:"type:text;not null;index"`
	// Reason is one of the severity keys in config.ReportWeights.
	Reason string `gorm:"type:text;not null"`
	Status string `gorm:"type:text"`
}
