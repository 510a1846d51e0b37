package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is a directory record for a platform account. The realtime layer
// treats the directory as an external source of truth: it only reads users
// to resolve identities and adjusts the moderation counters.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url"`
	IsCreator   bool           `json:"is_creator"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`

	// ReputationScore and SuspensionLevel are maintained by the moderation
	// service; SuspensionLevel only ever grows.
	ReputationScore int `json:"-"`
	SuspensionLevel int `json:"-"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is unset.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Summary returns the subset of the user that is safe to attach to
// presence events and push to other clients.
func (u *User) Summary() UserSummary {
	return UserSummary{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is the public projection of a user carried on presence events.
type UserSummary struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
