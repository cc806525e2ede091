package services

import (
	"math"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
)

// timeMultiplier decays linearly with elapsed session time, floored at 0.4.
func timeMultiplier(elapsed time.Duration) float64 {
	return math.Max(0.4, 1-elapsed.Seconds()/150)
}

// messageMultiplier rewards deciding on fewer messages.
func messageMultiplier(messagesUsed int) float64 {
	switch {
	case messagesUsed <= 1:
		return 1.0
	case messagesUsed == 2:
		return 0.85
	case messagesUsed == 3:
		return 0.65
	default:
		return 0.45
	}
}

// wordMultiplier penalizes verbosity, floored at 0.5.
func wordMultiplier(avgWords float64) float64 {
	return math.Max(0.5, 1-avgWords/40)
}

// scoringClockStart picks the elapsed-time basis: guess unlock, then first
// exchange, then room creation.
func scoringClockStart(room *models.Room) time.Time {
	if room.GuessUnlockStarted != nil {
		return *room.GuessUnlockStarted
	}
	if room.SessionStart != nil {
		return *room.SessionStart
	}
	return room.CreatedAt
}

// ComputeScore returns username's raw score for a correct guess in room,
// never below MinScoreCorrect.
func ComputeScore(room *models.Room, username string, now time.Time) int {
	elapsed := now.Sub(scoringClockStart(room))
	if elapsed < 0 {
		elapsed = 0
	}
	msgCount, totalWords := room.MessageStats(username)
	messagesUsed := msgCount
	if messagesUsed < 1 {
		messagesUsed = 1
	}
	avgWords := float64(totalWords) / float64(messagesUsed)
	score := float64(BaseScore) * timeMultiplier(elapsed) * messageMultiplier(messagesUsed) * wordMultiplier(avgWords)
	rounded := int(math.Round(score))
	if rounded < MinScoreCorrect {
		return MinScoreCorrect
	}
	return rounded
}

// ComputeBounty returns the bonus transferred to the sole correct guesser: a
// fraction of their raw score, capped so the final score never exceeds
// MaxScore.
func ComputeBounty(baseScore int) int {
	if baseScore >= MaxScore {
		return 0
	}
	bonus := int(math.Round(float64(baseScore) * BountyMultiplier))
	if bonus > MaxScore-baseScore {
		return MaxScore - baseScore
	}
	return bonus
}
