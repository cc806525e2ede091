package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/google/uuid"
)

// MatchmakingService pairs waiting users, or assigns the bot, driven entirely
// by client polling. Concurrency control is three conditional updates: the
// per-user poll lease, the atomic partner claim, and the active-room
// self-heal on every poll.
type MatchmakingService struct {
	Store *store.Store
	Now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMatchmakingService(st *store.Store, seed int64) *MatchmakingService {
	return &MatchmakingService{
		Store: st,
		Now:   time.Now,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *MatchmakingService) coinFlip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < 0.5
}

func (s *MatchmakingService) randomTarget() string {
	if s.coinFlip() {
		return models.TargetAI
	}
	return models.TargetHuman
}

type PollState int

const (
	// PollMatched carries a room the caller should join.
	PollMatched PollState = iota
	// PollWaiting means no partner yet; the client should poll again.
	PollWaiting
	// PollNotQueued means the caller is not in the queue at all.
	PollNotQueued
)

type PollResult struct {
	State  PollState
	RoomID string
}

// Enqueue puts username into the matchmaking queue. The partner target (AI or
// human, fair coin) is assigned on first enqueue only and kept across
// re-queues until a match resolves.
func (s *MatchmakingService) Enqueue(ctx context.Context, username string) error {
	user, err := s.Store.User(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundf("user %s not found", username)
	}

	room, err := s.Store.ActiveRoomFor(ctx, username)
	if err != nil {
		return err
	}
	if room != nil {
		judged, err := s.Store.HasJudged(ctx, username, room.ID)
		if err != nil {
			return err
		}
		if !judged {
			if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
				"matchmaking": false,
				"active_chat": room.ID,
			}); err != nil {
				return err
			}
			return Conflictf("already in an active chat")
		}
	}

	if user.Matchmaking {
		return Conflictf("already in queue")
	}

	updates := map[string]interface{}{
		"matchmaking": true,
		// no lease, so the first poll acquires immediately
		"match_lock_until": nil,
	}
	if user.MatchTarget != models.TargetAI && user.MatchTarget != models.TargetHuman {
		updates["match_target"] = s.randomTarget()
		updates["human_attempts"] = 0
	}
	_, err = s.Store.UpdateUser(ctx, username, "", nil, updates)
	return err
}

// Poll advances username's matchmaking by one step. Called repeatedly by the
// client until it returns PollMatched.
func (s *MatchmakingService) Poll(ctx context.Context, username string) (PollResult, error) {
	user, err := s.Store.User(ctx, username)
	if err != nil {
		return PollResult{}, err
	}
	if user == nil {
		return PollResult{}, NotFoundf("user %s not found", username)
	}

	// Self-heal: an unjudged active room always wins, whatever the queue
	// flags say. This is also how the claimed side of a human pairing
	// discovers its room.
	if res, ok, err := s.existingRoom(ctx, username); err != nil || ok {
		return res, err
	}

	if !user.Matchmaking {
		return PollResult{State: PollNotQueued}, nil
	}

	target := user.MatchTarget
	if target != models.TargetAI && target != models.TargetHuman {
		target = s.randomTarget()
	}

	now := s.Now()
	lockUntil := now.Add(MatchLockDuration)

	// Self-lease: only one in-flight poll per user may run the pairing
	// steps. A concurrent duplicate (double tap, second tab) loses the
	// compare-and-set and just reports "waiting".
	acquired, err := s.Store.UpdateUser(ctx, username,
		"(match_lock_until IS NULL OR match_lock_until < ?) AND matchmaking = ?",
		[]interface{}{now, true},
		map[string]interface{}{"match_lock_until": lockUntil})
	if err != nil {
		return PollResult{}, err
	}
	if !acquired {
		return PollResult{State: PollWaiting}, nil
	}

	if target == models.TargetAI {
		return s.pairWithAI(ctx, username)
	}
	return s.pairWithHuman(ctx, user, now, lockUntil)
}

func (s *MatchmakingService) existingRoom(ctx context.Context, username string) (PollResult, bool, error) {
	room, err := s.Store.ActiveRoomFor(ctx, username)
	if err != nil {
		return PollResult{}, false, err
	}
	if room == nil {
		return PollResult{}, false, nil
	}
	judged, err := s.Store.HasJudged(ctx, username, room.ID)
	if err != nil {
		return PollResult{}, false, err
	}
	if judged {
		return PollResult{}, false, nil
	}
	if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
		"matchmaking": false,
		"active_chat": room.ID,
	}); err != nil {
		return PollResult{}, false, err
	}
	return PollResult{State: PollMatched, RoomID: room.ID}, true, nil
}

// pairWithAI creates an AI room. If another poll for this user beat us to a
// room, the self-check returns that room instead of inserting a duplicate;
// each attempt uses a fresh room id so a lost race is discovered by the next
// poll's step 1.
func (s *MatchmakingService) pairWithAI(ctx context.Context, username string) (PollResult, error) {
	if res, ok, err := s.existingRoom(ctx, username); err != nil || ok {
		return res, err
	}

	now := s.Now()
	roomID := uuid.NewString()
	first := username
	if s.coinFlip() {
		first = models.AISentinel
	}
	room := &models.Room{
		ID:    roomID,
		User1: username,
		User2: models.AISentinel,
		Messages: models.MessageList{
			{Role: models.RoleDeveloper, Content: AIPrompt, SentAt: now},
		},
		Active:      true,
		First:       first,
		TurnStarted: &now,
	}
	if err := s.Store.CreateRoom(ctx, room); err != nil {
		return PollResult{}, err
	}
	if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
		"matchmaking":      false,
		"human_attempts":   0,
		"active_chat":      roomID,
		"match_target":     "",
		"match_lock_until": nil,
	}); err != nil {
		return PollResult{}, err
	}
	return PollResult{State: PollMatched, RoomID: roomID}, nil
}

func (s *MatchmakingService) pairWithHuman(ctx context.Context, user *models.User, now time.Time, lockUntil time.Time) (PollResult, error) {
	username := user.Username

	if res, ok, err := s.existingRoom(ctx, username); err != nil || ok {
		return res, err
	}

	partner, err := s.Store.ClaimWaitingPartner(ctx, username, now, lockUntil)
	if err != nil {
		return PollResult{}, err
	}

	if partner != nil {
		// The partner may have been left with an orphaned room by a
		// crashed poll; give it back to them and stand down.
		existing, err := s.Store.ActiveRoomFor(ctx, partner.Username)
		if err != nil {
			return PollResult{}, err
		}
		if existing != nil {
			if _, err := s.Store.UpdateUser(ctx, partner.Username, "", nil, map[string]interface{}{
				"matchmaking":      false,
				"active_chat":      existing.ID,
				"match_lock_until": nil,
			}); err != nil {
				return PollResult{}, err
			}
			if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
				"match_lock_until": nil,
			}); err != nil {
				return PollResult{}, err
			}
			return PollResult{State: PollWaiting}, nil
		}

		roomID := uuid.NewString()
		room := &models.Room{
			ID:       roomID,
			User1:    username,
			User2:    partner.Username,
			Messages: models.MessageList{},
			Active:   true,
		}
		if err := s.Store.CreateRoom(ctx, room); err != nil {
			return PollResult{}, err
		}
		if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
			"matchmaking":      false,
			"human_attempts":   0,
			"active_chat":      roomID,
			"match_target":     "",
			"match_lock_until": nil,
		}); err != nil {
			return PollResult{}, err
		}
		if _, err := s.Store.UpdateUser(ctx, partner.Username, "", nil, map[string]interface{}{
			"active_chat":      roomID,
			"match_lock_until": nil,
		}); err != nil {
			return PollResult{}, err
		}
		// The partner discovers the room via its own next poll.
		return PollResult{State: PollMatched, RoomID: roomID}, nil
	}

	// No partner available: release our lease (only if still ours) and
	// count the miss. Three misses fall back to an AI pairing.
	if _, err := s.Store.UpdateUser(ctx, username,
		"match_lock_until = ?", []interface{}{lockUntil},
		map[string]interface{}{"match_lock_until": nil}); err != nil {
		return PollResult{}, err
	}

	attempts := user.HumanAttempts + 1
	if attempts >= HumanAttemptLimit {
		return s.pairWithAI(ctx, username)
	}
	if _, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{
		"human_attempts":   attempts,
		"match_target":     models.TargetHuman,
		"match_lock_until": nil,
	}); err != nil {
		return PollResult{}, err
	}
	return PollResult{State: PollWaiting}, nil
}
