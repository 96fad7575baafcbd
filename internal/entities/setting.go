package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Remote service OAuth credentials. Token and secret values are stored
	// AES-256-GCM encrypted; the rest are plain.
	SettingKeyRemoteAccessToken   = "remote_access_token"
	SettingKeyRemoteAccessSecret  = "remote_access_secret"
	SettingKeyRemoteRequestToken  = "remote_request_token"
	SettingKeyRemoteRequestSecret = "remote_request_secret"
	SettingKeyRemoteValidated     = "remote_validated"
	SettingKeyRemoteUserID        = "remote_user_id"
	SettingKeyRemoteUserName      = "remote_user_name"

	// Sync settings
	SettingKeySyncEnabled  = "sync_enabled"
	SettingKeySyncSchedule = "sync_schedule"
	SettingKeySyncLastAt   = "sync_last_at"
)
