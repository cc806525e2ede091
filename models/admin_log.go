package models

import "time"

// AdminLog is an audit row for admin actions (user provisioning, bans).
// Best-effort: writes are never allowed to fail the admin operation itself.
type AdminLog struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	Admin     string    `gorm:"index;not null" json:"admin"`
	Action    string    `gorm:"not null" json:"action"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
