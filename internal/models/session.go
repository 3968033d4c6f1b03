package models

import "time"

// SessionRecord persists one browser session's bearer credential.
type SessionRecord struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Credential string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName pins the table name.
func (SessionRecord) TableName() string {
	return "portal_sessions"
}
