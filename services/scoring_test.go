package services

import (
	"testing"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
)

func TestTimeMultiplierFloor(t *testing.T) {
	if got := timeMultiplier(0); got != 1.0 {
		t.Fatalf("zero elapsed: %v", got)
	}
	if got := timeMultiplier(75 * time.Second); got != 0.5 {
		t.Fatalf("75s elapsed: %v", got)
	}
	if got := timeMultiplier(10 * time.Minute); got != 0.4 {
		t.Fatalf("floor not applied: %v", got)
	}
}

func TestMessageMultiplierSteps(t *testing.T) {
	cases := []struct {
		used int
		want float64
	}{
		{0, 1.0}, {1, 1.0}, {2, 0.85}, {3, 0.65}, {4, 0.45}, {7, 0.45},
	}
	for _, c := range cases {
		if got := messageMultiplier(c.used); got != c.want {
			t.Fatalf("messages=%d: got %v want %v", c.used, got, c.want)
		}
	}
}

func TestWordMultiplierFloor(t *testing.T) {
	if got := wordMultiplier(0); got != 1.0 {
		t.Fatalf("no words: %v", got)
	}
	if got := wordMultiplier(20); got != 0.5 {
		t.Fatalf("20 avg words: %v", got)
	}
	if got := wordMultiplier(100); got != 0.5 {
		t.Fatalf("floor not applied: %v", got)
	}
}

func TestComputeScore(t *testing.T) {
	clock := newFixedClock()
	unlock := clock.At(0)
	room := &models.Room{
		ID:    "r1",
		User1: "alice",
		User2: models.AISentinel,
		Messages: models.MessageList{
			{Role: models.RoleDeveloper, Content: "setup"},
			{Role: models.RoleUser, Content: "hey whats up with you today my friend", Sender: "alice"},
			{Role: models.RoleAssistant, Content: "not much"},
			{Role: models.RoleUser, Content: "cool cool one two three four five six", Sender: "alice"},
		},
		GuessUnlockStarted: &unlock,
	}

	// 30s elapsed: time 0.8; 2 messages: 0.85; 16 words over 2: avg 8, word 0.8
	got := ComputeScore(room, "alice", clock.At(30*time.Second))
	if got != 54 {
		t.Fatalf("score = %d, want 54", got)
	}

	// a clock running backwards never inflates the score
	if got := ComputeScore(room, "alice", clock.At(-time.Hour)); got != 68 {
		t.Fatalf("negative elapsed score = %d, want 68", got)
	}
}

func TestComputeScoreIgnoresDeveloperAndPartnerMessages(t *testing.T) {
	clock := newFixedClock()
	unlock := clock.At(0)
	room := &models.Room{
		ID:    "r1",
		User1: "alice",
		User2: "bob",
		Messages: models.MessageList{
			{Role: "alice", Content: "hi there", Sender: "alice"},
			{Role: "bob", Content: "a very long reply that should not count against alice at all ever", Sender: "bob"},
		},
		GuessUnlockStarted: &unlock,
	}
	// 1 message, 2 words: 100 * 1.0 * 1.0 * 0.95
	if got := ComputeScore(room, "alice", clock.At(0)); got != 95 {
		t.Fatalf("score = %d, want 95", got)
	}
}

func TestComputeBounty(t *testing.T) {
	cases := []struct {
		base, want int
	}{
		{80, 20},
		{100, 20},  // capped at MaxScore - base
		{110, 10},  // cap beats the rounded fraction
		{120, 0},
		{150, 0},
		{5, 1},
	}
	for _, c := range cases {
		if got := ComputeBounty(c.base); got != c.want {
			t.Fatalf("base=%d: got %d want %d", c.base, got, c.want)
		}
	}
}
