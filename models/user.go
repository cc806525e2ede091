package models

import "time"

// User is one provisioned player (or admin). Matchmaking state lives here:
// the queue flag, the randomly assigned partner target, the advisory poll
// lease, and the consecutive human-pairing miss counter.
type User struct {
	Username string `gorm:"primaryKey;column:username" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Token    string `gorm:"not null" json:"-"`
	Role     string `gorm:"type:varchar(16);not null;default:'user';column:role" json:"role"`

	Score  int64 `gorm:"not null;default:0" json:"score"`
	Banned bool  `gorm:"not null;default:false" json:"banned"`

	Matchmaking    bool       `gorm:"not null;default:false;column:matchmaking" json:"matchmaking"`
	MatchTarget    string     `gorm:"type:varchar(8);not null;default:'';column:match_target" json:"-"` // "", "AI" or "Human"
	MatchLockUntil *time.Time `gorm:"column:match_lock_until" json:"-"`
	HumanAttempts  int        `gorm:"not null;default:0;column:human_attempts" json:"-"`

	ActiveChat *string `gorm:"index;column:active_chat" json:"active_chat,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

const (
	RoleUserAccount  = "user"
	RoleAdminAccount = "admin"

	TargetAI    = "AI"
	TargetHuman = "Human"
)

// JudgedRoom records that a user has submitted (or been credited with) a
// verdict for a room. One row per (user, room); inserted with ON CONFLICT DO
// NOTHING so the set only ever grows and marking is idempotent.
type JudgedRoom struct {
	Username  string    `gorm:"primaryKey;column:username" json:"username"`
	RoomID    string    `gorm:"primaryKey;column:room_id" json:"room_id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (JudgedRoom) TableName() string { return "judged_rooms" }
