package services

import (
	"context"
	"strings"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
)

// GuessService resolves verdicts. Solo (AI-partner) guesses settle
// immediately; human pairs go through a grace window so the second guess can
// still land, with the bounty moving only when exactly one side is correct.
// Arbitration is outcome-only: guess timestamps are recorded but never
// compared.
type GuessService struct {
	Store *store.Store
	Now   func() time.Time
}

func NewGuessService(st *store.Store) *GuessService {
	return &GuessService{Store: st, Now: time.Now}
}

const (
	VerdictAI    = "AI"
	VerdictHuman = "HUMAN"
)

// GuessResult reports one settled verdict back to the guesser.
type GuessResult struct {
	Guess        string `json:"guess"`
	Correct      bool   `json:"correct"`
	PartnerWasAI bool   `json:"partner_was_ai"`
	Score        int    `json:"score"`
}

// SubmitGuess records username's verdict for the room and runs resolution.
func (s *GuessService) SubmitGuess(ctx context.Context, roomID, username, verdict string) (*GuessResult, error) {
	verdict = strings.ToUpper(strings.TrimSpace(verdict))
	if verdict != VerdictAI && verdict != VerdictHuman {
		return nil, Conflictf("verdict must be %s or %s", VerdictAI, VerdictHuman)
	}

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
	if !room.CanGuess() {
		return nil, Conflictf("wait for both people to send a message")
	}

	judged, err := s.Store.HasJudged(ctx, username, roomID)
	if err != nil {
		return nil, err
	}
	if judged {
		return nil, Conflictf("already judged this chat")
	}
	if _, exists := room.Guesses[username]; exists {
		return nil, Conflictf("already judged this chat")
	}

	now := s.Now()
	partner := room.PartnerOf(username)
	truth := VerdictHuman
	if partner.IsAI() {
		truth = VerdictAI
	}
	correct := verdict == truth
	score := 0
	if correct {
		score = ComputeScore(room, username, now)
	}
	record := models.GuessRecord{
		Guess:      verdict,
		Correct:    correct,
		Time:       now,
		Score:      score,
		FinalScore: score,
	}

	if partner.IsAI() {
		return s.resolveSolo(ctx, room, username, record)
	}
	return s.resolveDual(ctx, room, username, partner.Username, record, now)
}

func (s *GuessService) resolveSolo(ctx context.Context, room *models.Room, username string, record models.GuessRecord) (*GuessResult, error) {
	guesses := cloneGuesses(room.Guesses)
	guesses[username] = record
	applied, err := s.Store.UpdateRoomDoc(ctx, room, map[string]interface{}{
		"active":  false,
		"guesses": guesses,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, Conflictf("chat changed, try again")
	}
	room.Guesses = guesses
	room.Active = false

	if err := s.Store.ReleaseActiveChat(ctx, room.ID, room.HumanParticipants()); err != nil {
		return nil, err
	}
	if err := s.Store.MarkJudged(ctx, username, room.ID); err != nil {
		return nil, err
	}
	if record.Correct {
		if err := s.Store.IncrementScore(ctx, username, int64(record.Score)); err != nil {
			return nil, err
		}
	}
	return &GuessResult{
		Guess:        record.Guess,
		Correct:      record.Correct,
		PartnerWasAI: true,
		Score:        record.Score,
	}, nil
}

func (s *GuessService) resolveDual(ctx context.Context, room *models.Room, username, partner string, record models.GuessRecord, now time.Time) (*GuessResult, error) {
	if room.GuessWindowExpired(now) {
		if err := s.FinalizeGuessTimeout(ctx, room); err != nil {
			return nil, err
		}
		return nil, Expiredf("guess window expired")
	}

	firstGuess := room.GuessLockUntil == nil

	guesses := cloneGuesses(room.Guesses)
	guesses[username] = record
	updates := map[string]interface{}{
		"guesses": guesses,
		"active":  false,
	}
	if firstGuess {
		lockUntil := now.Add(GuessGrace)
		updates["guess_lock_until"] = lockUntil
		updates["guess_lock_started"] = now
	}
	applied, err := s.Store.UpdateRoomDoc(ctx, room, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, Conflictf("chat changed, try again")
	}
	room.Guesses = guesses
	room.Active = false

	if err := s.Store.MarkJudged(ctx, username, room.ID); err != nil {
		return nil, err
	}
	if record.Correct {
		if err := s.Store.IncrementScore(ctx, username, int64(record.Score)); err != nil {
			return nil, err
		}
	}
	if _, err := s.Store.UpdateUser(ctx, username,
		"active_chat = ?", []interface{}{room.ID},
		map[string]interface{}{"active_chat": nil}); err != nil {
		return nil, err
	}

	if !firstGuess {
		partnerGuess, ok := guesses[partner]
		if ok {
			if record.Correct != partnerGuess.Correct {
				winner := username
				base := record.Score
				if partnerGuess.Correct {
					winner = partner
					base = partnerGuess.Score
				}
				bonus := ComputeBounty(base)
				if bonus > 0 {
					if err := s.Store.IncrementScore(ctx, winner, int64(bonus)); err != nil {
						return nil, err
					}
				}
				won := guesses[winner]
				won.Bounty = bonus
				won.FinalScore = base + bonus
				guesses[winner] = won
				if _, err := s.Store.UpdateRoomDoc(ctx, room, map[string]interface{}{
					"guesses":               guesses,
					"guess_timeout_handled": true,
				}); err != nil {
					return nil, err
				}
			} else {
				// both right or both wrong: no bounty either way
				if _, err := s.Store.UpdateRoomDoc(ctx, room, map[string]interface{}{
					"guess_timeout_handled": true,
				}); err != nil {
					return nil, err
				}
			}
			room.Guesses = guesses
			room.GuessTimeoutHandled = true
			if err := s.Store.ReleaseActiveChat(ctx, room.ID, room.HumanParticipants()); err != nil {
				return nil, err
			}
		}
	}

	// report the settled record: when this guess closed the arbitration it
	// may have just collected the bounty
	final := guesses[username]
	return &GuessResult{
		Guess:        final.Guess,
		Correct:      final.Correct,
		PartnerWasAI: false,
		Score:        final.FinalScore,
	}, nil
}

// FinalizeGuessTimeout settles a human room whose grace window elapsed with
// only one guess recorded: the silent partner is marked as having judged (so
// they are not stuck), and a correct sole guess collects the bounty as if
// against an absent opponent. Idempotent; safe to invoke from any poll.
func (s *GuessService) FinalizeGuessTimeout(ctx context.Context, room *models.Room) error {
	if room.IsAIRoom() || room.GuessTimeoutHandled {
		return nil
	}
	if !room.GuessWindowExpired(s.Now()) {
		return nil
	}
	if len(room.Guesses) != 1 {
		return nil
	}

	var guesser string
	var record models.GuessRecord
	for u, g := range room.Guesses {
		guesser, record = u, g
	}
	partner := room.PartnerOf(guesser)
	if !partner.IsAI() {
		if err := s.Store.MarkJudged(ctx, partner.Username, room.ID); err != nil {
			return err
		}
	}

	updates := map[string]interface{}{
		"guess_timeout_handled": true,
		"active":                false,
	}
	if record.Correct {
		bonus := ComputeBounty(record.Score)
		guesses := cloneGuesses(room.Guesses)
		record.Bounty = bonus
		record.FinalScore = record.Score + bonus
		guesses[guesser] = record
		updates["guesses"] = guesses
		applied, err := s.Store.UpdateRoomDoc(ctx, room, updates)
		if err != nil {
			return err
		}
		if !applied {
			// another poll finalized first; the handled guard held
			return nil
		}
		room.Guesses = guesses
		if bonus > 0 {
			if err := s.Store.IncrementScore(ctx, guesser, int64(bonus)); err != nil {
				return err
			}
		}
	} else {
		applied, err := s.Store.UpdateRoomDoc(ctx, room, updates)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
	}
	room.Active = false
	room.GuessTimeoutHandled = true
	return s.Store.ReleaseActiveChat(ctx, room.ID, room.HumanParticipants())
}

func cloneGuesses(in models.GuessMap) models.GuessMap {
	out := make(models.GuessMap, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
