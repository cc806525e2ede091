package services

import "time"

// Gameplay tunables. The scoring curve and pacing values are part of the
// game design; changing them changes recorded scores.
const (
	MaxMessagesPerUser = 4
	MaxWordsPerMessage = 30
	TurnTimeout        = 60 * time.Second

	MaxOutputTokens = 47
	MinAIDelay      = 1500 * time.Millisecond
	MaxAIDelay      = 10 * time.Second
	AverageWPM      = 50
	ThinkMin        = 600 * time.Millisecond
	ThinkMax        = 2800 * time.Millisecond
	AILockDuration  = 180 * time.Second
	AINudgeAfter    = 12 * time.Second

	BaseScore        = 100
	MinScoreCorrect  = 5
	MaxScore         = 120
	BountyMultiplier = 0.25
	GuessGrace       = 10 * time.Second

	MatchLockDuration = 15 * time.Second
	HumanAttemptLimit = 3
)
