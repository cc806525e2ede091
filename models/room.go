package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AhaanV05/Reverse-Turing/utils"
)

// Message roles. In AI rooms the human speaks as "user" and the bot as
// "assistant"; in human rooms each side speaks under its own username.
// Developer messages carry prompt text and are excluded from every count
// and projection.
const (
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Sender  string    `json:"sender,omitempty"`
	SentAt  time.Time `json:"sent_at,omitempty"`
}

// MessageList is the append-only message sequence, stored as one JSON column
// and rewritten only under the room's revision guard.
type MessageList []Message

func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		m = MessageList{}
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *MessageList) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// GuessRecord is one participant's verdict and its scoring outcome.
type GuessRecord struct {
	Guess      string    `json:"guess"` // "AI" or "HUMAN"
	Correct    bool      `json:"correct"`
	Time       time.Time `json:"time"`
	Score      int       `json:"score"`
	Bounty     int       `json:"bounty"`
	FinalScore int       `json:"final_score"`
}

// GuessMap maps participant username to their guess record. Each participant
// appears at most once.
type GuessMap map[string]GuessRecord

func (g GuessMap) Value() (driver.Value, error) {
	if g == nil {
		g = GuessMap{}
	}
	b, err := json.Marshal(g)
	return string(b), err
}

func (g *GuessMap) Scan(value interface{}) error {
	return scanJSON(value, g)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Room is one matched conversation session. All mutations are single
// conditional updates; multi-field document rewrites are guarded by Revision.
type Room struct {
	ID    string `gorm:"primaryKey;column:id" json:"id"`
	User1 string `gorm:"index;not null;column:user1" json:"user1"`
	User2 string `gorm:"index;not null;column:user2" json:"user2"` // may hold AISentinel

	Messages MessageList `gorm:"type:jsonb;column:messages" json:"messages"`

	Active bool   `gorm:"index;not null;default:true;column:active" json:"active"`
	First  string `gorm:"column:first" json:"first"` // who speaks first; set once

	TurnStarted        *time.Time `gorm:"column:turn_started" json:"turn_started,omitempty"`
	SessionStart       *time.Time `gorm:"column:session_start" json:"session_start,omitempty"`
	GuessUnlockStarted *time.Time `gorm:"column:guess_unlock_started" json:"guess_unlock_started,omitempty"`

	LastUserAt  *time.Time `gorm:"column:last_user_at" json:"-"`
	LastAIAt    *time.Time `gorm:"column:last_ai_at" json:"-"`
	AINudged    bool       `gorm:"not null;default:false;column:ai_nudged" json:"-"`
	AILockUntil *time.Time `gorm:"index;column:ai_lock_until" json:"-"`
	AILockOwner string     `gorm:"column:ai_lock_owner" json:"-"`

	Guesses             GuessMap   `gorm:"type:jsonb;column:guesses" json:"guesses"`
	GuessLockUntil      *time.Time `gorm:"column:guess_lock_until" json:"guess_lock_until,omitempty"`
	GuessLockStarted    *time.Time `gorm:"column:guess_lock_started" json:"guess_lock_started,omitempty"`
	GuessTimeoutHandled bool       `gorm:"not null;default:false;column:guess_timeout_handled" json:"-"`

	Archived bool  `gorm:"not null;default:false;column:archived" json:"-"`
	Revision int64 `gorm:"not null;default:0;column:revision" json:"-"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Partner returns the decoded second seat.
func (r *Room) Partner() Participant { return ParseParticipant(r.User2) }

// IsAIRoom reports whether the second seat is held by the bot.
func (r *Room) IsAIRoom() bool { return r.Partner().IsAI() }

// HasParticipant reports whether username holds a seat in this room.
func (r *Room) HasParticipant(username string) bool {
	return username == r.User1 || username == r.User2
}

// PartnerOf returns the seat opposite username.
func (r *Room) PartnerOf(username string) Participant {
	if username == r.User1 {
		return r.Partner()
	}
	return HumanParticipant(r.User1)
}

// HumanParticipants lists the real users holding seats.
func (r *Room) HumanParticipants() []string {
	users := []string{r.User1}
	if p := r.Partner(); !p.IsAI() {
		users = append(users, p.Username)
	}
	return users
}

func (r *Room) countRole(role string) int {
	n := 0
	for _, m := range r.Messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

// Counts returns the per-seat message counts (user1, user2), excluding
// developer messages.
func (r *Room) Counts() (int, int) {
	if r.IsAIRoom() {
		return r.countRole(RoleUser), r.countRole(RoleAssistant)
	}
	return r.countRole(r.User1), r.countRole(r.User2)
}

// CountsFor returns (own, other) message counts relative to username.
func (r *Room) CountsFor(username string) (int, int) {
	u1, u2 := r.Counts()
	if r.IsAIRoom() || username == r.User1 {
		return u1, u2
	}
	return u2, u1
}

// ConversationCount is the number of non-developer messages.
func (r *Room) ConversationCount() int {
	n := 0
	for _, m := range r.Messages {
		if m.Role != RoleDeveloper {
			n++
		}
	}
	return n
}

// CanGuess reports guess eligibility: at least two real messages, at least
// one from each side.
func (r *Room) CanGuess() bool {
	if r.ConversationCount() < 2 {
		return false
	}
	u1, u2 := r.Counts()
	return u1 >= 1 && u2 >= 1
}

// MessageStats returns username's message count and total word count.
func (r *Room) MessageStats(username string) (count int, totalWords int) {
	role := username
	if r.IsAIRoom() {
		role = RoleUser
	}
	for _, m := range r.Messages {
		if m.Role == role {
			count++
			totalWords += utils.WordCount(m.Content)
		}
	}
	return count, totalWords
}

// LastHumanMessage returns the content of the most recent human message in
// an AI room, or "" if none.
func (r *Room) LastHumanMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// TurnTimedOut reports whether the pending turn has exceeded limit.
func (r *Room) TurnTimedOut(now time.Time, limit time.Duration) bool {
	if r.TurnStarted == nil {
		return false
	}
	return now.Sub(*r.TurnStarted) > limit
}

// GuessWindowExpired reports whether the grace window opened by the first
// guesser has elapsed.
func (r *Room) GuessWindowExpired(now time.Time) bool {
	return r.GuessLockUntil != nil && now.After(*r.GuessLockUntil)
}
