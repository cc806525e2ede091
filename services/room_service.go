package services

import (
	"context"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/AhaanV05/Reverse-Turing/utils"
)

// RoomService owns the conversation lifecycle: turn alternation, message
// admission and the lazy, read-triggered transitions. There is no per-room
// timer; every read is an opportunity to commit an overdue transition, so an
// ended state lands within one polling interval.
type RoomService struct {
	Store   *store.Store
	Guesses *GuessService
	Now     func() time.Time
}

func NewRoomService(st *store.Store, guesses *GuessService) *RoomService {
	return &RoomService{Store: st, Guesses: guesses, Now: time.Now}
}

func (s *RoomService) room(ctx context.Context, roomID, username string) (*models.Room, error) {
	room, err := s.Store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, NotFoundf("room %s not found", roomID)
	}
	if !room.HasParticipant(username) {
		return nil, Unauthorizedf("not a participant of this chat")
	}
	return room, nil
}

// Send appends author's message. The append, the turn-clock reset, the
// session-start stamp and the possible limit termination are one
// revision-guarded update.
func (s *RoomService) Send(ctx context.Context, roomID, author, text string) error {
	room, err := s.room(ctx, roomID, author)
	if err != nil {
		return err
	}
	if !room.Active {
		return Conflictf("chat has been ended")
	}

	now := s.Now()
	if room.TurnTimedOut(now, TurnTimeout) {
		if err := s.Store.EndRoom(ctx, room); err != nil {
			return err
		}
		return Expiredf("chat timed out")
	}
	if utils.WordCount(text) > MaxWordsPerMessage {
		return LimitExceededf("word limit is %d words", MaxWordsPerMessage)
	}

	ownCount, otherCount := room.CountsFor(author)
	if ownCount >= MaxMessagesPerUser {
		return LimitExceededf("message limit reached")
	}

	role := author
	if room.IsAIRoom() {
		role = models.RoleUser
	}
	shouldEnd := ownCount+1 >= MaxMessagesPerUser && otherCount >= MaxMessagesPerUser
	firstExchange := room.ConversationCount() == 0

	messages := append(room.Messages, models.Message{
		Role:    role,
		Content: text,
		Sender:  author,
		SentAt:  now,
	})
	updates := map[string]interface{}{
		"messages":     messages,
		"active":       !shouldEnd,
		"turn_started": now,
	}
	if room.IsAIRoom() {
		updates["last_user_at"] = now
		updates["ai_nudged"] = false
	}
	if firstExchange {
		updates["session_start"] = now
	}

	applied, err := s.Store.UpdateRoomDoc(ctx, room, updates)
	if err != nil {
		return err
	}
	if !applied {
		return Conflictf("chat changed, try again")
	}
	if shouldEnd {
		return s.Store.ReleaseActiveChat(ctx, room.ID, room.HumanParticipants())
	}
	return nil
}

// MessageView is one rendered message, tagged viewer-relative.
type MessageView struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
	Own     bool   `json:"own"`
}

// RoomView is the poll projection returned to one participant.
type RoomView struct {
	RoomID             string        `json:"room"`
	Active             bool          `json:"active"`
	First              string        `json:"first"`
	Messages           []MessageView `json:"messages"`
	UserCount          int           `json:"user_count"`
	OtherCount         int           `json:"other_count"`
	MaxMessages        int           `json:"max_messages"`
	MaxWords           int           `json:"max_words"`
	TurnStarted        *time.Time    `json:"turn_started,omitempty"`
	TurnTimeoutSeconds float64       `json:"turn_timeout"`
	MessageCount       int           `json:"message_count"`
	CanGuess           bool          `json:"can_guess"`
	GuessLockUntil     *time.Time    `json:"guess_lock_until,omitempty"`
	GuessLockStarted   *time.Time    `json:"guess_lock_started,omitempty"`
	GuessWindowSeconds float64       `json:"guess_window_seconds"`
	UserHasGuessed     bool          `json:"user_has_guessed"`
	GuessExpired       bool          `json:"guess_expired"`
}

// Read evaluates the lazy transitions (guess-window expiry, guess unlock,
// turn timeout) and returns viewer's projection of the room.
func (s *RoomService) Read(ctx context.Context, roomID, viewer string) (*RoomView, error) {
	room, err := s.room(ctx, roomID, viewer)
	if err != nil {
		return nil, err
	}
	now := s.Now()

	if err := s.Guesses.FinalizeGuessTimeout(ctx, room); err != nil {
		return nil, err
	}

	// Human rooms: whoever opens the room first speaks first. Set-once via
	// the empty-first guard.
	if room.First == "" {
		applied, err := s.Store.UpdateRoom(ctx, room.ID, "first = ?", []interface{}{""},
			map[string]interface{}{"first": viewer, "turn_started": now})
		if err != nil {
			return nil, err
		}
		if applied {
			room.First = viewer
			room.TurnStarted = &now
		} else if room, err = s.room(ctx, roomID, viewer); err != nil {
			return nil, err
		}
	} else if room.TurnStarted == nil {
		if _, err := s.Store.UpdateRoom(ctx, room.ID, "turn_started IS NULL", nil,
			map[string]interface{}{"turn_started": now}); err != nil {
			return nil, err
		}
		room.TurnStarted = &now
	}

	// Unlock guessing exactly once; the stamp becomes the scoring clock.
	if room.CanGuess() && room.GuessUnlockStarted == nil {
		applied, err := s.Store.UpdateRoom(ctx, room.ID, "guess_unlock_started IS NULL", nil,
			map[string]interface{}{"guess_unlock_started": now})
		if err != nil {
			return nil, err
		}
		if applied {
			room.GuessUnlockStarted = &now
		}
	}

	if room.Active && room.TurnTimedOut(now, TurnTimeout) {
		if err := s.Store.EndRoom(ctx, room); err != nil {
			return nil, err
		}
	}

	guessExpired := room.GuessWindowExpired(now)
	if guessExpired && room.Active {
		if err := s.Store.EndRoom(ctx, room); err != nil {
			return nil, err
		}
	}

	ownCount, otherCount := room.CountsFor(viewer)
	_, viewerHasGuessed := room.Guesses[viewer]

	views := make([]MessageView, 0, len(room.Messages))
	for _, m := range room.Messages {
		if m.Role == models.RoleDeveloper {
			continue
		}
		sender := m.Sender
		if sender == "" {
			// legacy rows without a sender tag
			if room.IsAIRoom() {
				sender = models.AISentinel
				if m.Role == models.RoleUser {
					sender = room.User1
				}
			} else {
				sender = m.Role
			}
		}
		views = append(views, MessageView{
			Content: m.Content,
			Sender:  sender,
			Own:     sender == viewer,
		})
	}

	return &RoomView{
		RoomID:             room.ID,
		Active:             room.Active,
		First:              room.First,
		Messages:           views,
		UserCount:          ownCount,
		OtherCount:         otherCount,
		MaxMessages:        MaxMessagesPerUser,
		MaxWords:           MaxWordsPerMessage,
		TurnStarted:        room.TurnStarted,
		TurnTimeoutSeconds: TurnTimeout.Seconds(),
		MessageCount:       room.ConversationCount(),
		CanGuess:           room.CanGuess(),
		GuessLockUntil:     room.GuessLockUntil,
		GuessLockStarted:   room.GuessLockStarted,
		GuessWindowSeconds: GuessGrace.Seconds(),
		UserHasGuessed:     viewerHasGuessed,
		GuessExpired:       guessExpired,
	}, nil
}

// End terminates the room on behalf of a participant. Idempotent.
func (s *RoomService) End(ctx context.Context, roomID, caller string) error {
	room, err := s.room(ctx, roomID, caller)
	if err != nil {
		return err
	}
	return s.Store.EndRoom(ctx, room)
}
