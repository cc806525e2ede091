package services

import (
	"context"
	"testing"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
)

func newTestMatchmaking(t *testing.T) (*MatchmakingService, *fixedClock) {
	t.Helper()
	svc := NewMatchmakingService(newTestStore(t), 1)
	clock := newFixedClock()
	svc.Now = clock.Now
	return svc, clock
}

func TestEnqueue(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice"})

	if err := svc.Enqueue(ctx, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	u := loadUser(t, svc.Store, "alice")
	if !u.Matchmaking {
		t.Fatal("not queued")
	}
	if u.MatchTarget != models.TargetAI && u.MatchTarget != models.TargetHuman {
		t.Fatalf("no target assigned: %q", u.MatchTarget)
	}

	err := svc.Enqueue(ctx, "alice")
	if !IsCode(err, CodeConflict) {
		t.Fatalf("double enqueue: %v", err)
	}
}

func TestEnqueueKeepsTargetAcrossRequeues(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice", MatchTarget: models.TargetHuman, HumanAttempts: 2})

	if err := svc.Enqueue(ctx, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	u := loadUser(t, svc.Store, "alice")
	if u.MatchTarget != models.TargetHuman {
		t.Fatalf("target rerolled: %q", u.MatchTarget)
	}
	if u.HumanAttempts != 2 {
		t.Fatalf("attempts reset: %d", u.HumanAttempts)
	}
}

func TestEnqueueBlockedByActiveRoom(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice"})
	seedRoom(t, svc.Store, models.Room{ID: "r1", User1: "alice", User2: models.AISentinel, Active: true})

	err := svc.Enqueue(ctx, "alice")
	if !IsCode(err, CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	u := loadUser(t, svc.Store, "alice")
	if u.ActiveChat == nil || *u.ActiveChat != "r1" {
		t.Fatalf("seat not healed: %#v", u.ActiveChat)
	}
}

func TestPollNotQueued(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	seedUser(t, svc.Store, models.User{Username: "alice"})

	res, err := svc.Poll(context.Background(), "alice")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.State != PollNotQueued {
		t.Fatalf("state = %v", res.State)
	}
}

func TestPollPairsWithAI(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice", MatchTarget: models.TargetAI})

	if err := svc.Enqueue(ctx, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := svc.Poll(ctx, "alice")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.State != PollMatched || res.RoomID == "" {
		t.Fatalf("unexpected result: %#v", res)
	}

	room := loadRoom(t, svc.Store, res.RoomID)
	if room.User1 != "alice" || room.User2 != models.AISentinel || !room.Active {
		t.Fatalf("unexpected room: %#v", room)
	}
	// seed 1's first draw lands above 0.5, so the coin flip keeps the human
	if room.First != "alice" {
		t.Fatalf("first speaker = %q, want alice", room.First)
	}
	if room.TurnStarted == nil {
		t.Fatal("turn clock not started")
	}
	if len(room.Messages) != 1 || room.Messages[0].Role != models.RoleDeveloper {
		t.Fatalf("prompt message missing: %#v", room.Messages)
	}

	u := loadUser(t, svc.Store, "alice")
	if u.Matchmaking || u.ActiveChat == nil || *u.ActiveChat != room.ID {
		t.Fatalf("queue state not cleared: %#v", u)
	}

	// repolling reports the same room via the active-room check
	res2, err := svc.Poll(ctx, "alice")
	if err != nil || res2.State != PollMatched || res2.RoomID != res.RoomID {
		t.Fatalf("repoll: %#v err=%v", res2, err)
	}
}

func TestPollPairsTwoHumans(t *testing.T) {
	svc, _ := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice", MatchTarget: models.TargetHuman})
	seedUser(t, svc.Store, models.User{Username: "bob", MatchTarget: models.TargetHuman})

	for _, u := range []string{"alice", "bob"} {
		if err := svc.Enqueue(ctx, u); err != nil {
			t.Fatalf("enqueue %s: %v", u, err)
		}
	}

	res, err := svc.Poll(ctx, "alice")
	if err != nil {
		t.Fatalf("alice poll: %v", err)
	}
	if res.State != PollMatched {
		t.Fatalf("alice not matched: %#v", res)
	}

	room := loadRoom(t, svc.Store, res.RoomID)
	if room.IsAIRoom() || !room.HasParticipant("bob") {
		t.Fatalf("unexpected pairing: %#v", room)
	}
	if room.First != "" {
		t.Fatalf("human room first speaker should wait for the opener, got %q", room.First)
	}

	// bob discovers the same room on his next poll
	bobRes, err := svc.Poll(ctx, "bob")
	if err != nil || bobRes.State != PollMatched || bobRes.RoomID != res.RoomID {
		t.Fatalf("bob poll: %#v err=%v", bobRes, err)
	}
	for _, name := range []string{"alice", "bob"} {
		u := loadUser(t, svc.Store, name)
		if u.Matchmaking {
			t.Fatalf("%s still queued", name)
		}
		if u.ActiveChat == nil || *u.ActiveChat != res.RoomID {
			t.Fatalf("%s not seated: %#v", name, u.ActiveChat)
		}
	}
}

func TestPollFallsBackToAIAfterMisses(t *testing.T) {
	svc, clock := newTestMatchmaking(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice", MatchTarget: models.TargetHuman})

	if err := svc.Enqueue(ctx, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	for i := 0; i < HumanAttemptLimit-1; i++ {
		res, err := svc.Poll(ctx, "alice")
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if res.State != PollWaiting {
			t.Fatalf("poll %d: state = %v", i, res.State)
		}
		clock.Advance(time.Second)
	}

	res, err := svc.Poll(ctx, "alice")
	if err != nil {
		t.Fatalf("final poll: %v", err)
	}
	if res.State != PollMatched {
		t.Fatalf("no fallback: %#v", res)
	}
	room := loadRoom(t, svc.Store, res.RoomID)
	if !room.IsAIRoom() {
		t.Fatal("fallback room should seat the bot")
	}
}

func TestPollSelfLeaseBlocksConcurrentDuplicate(t *testing.T) {
	svc, clock := newTestMatchmaking(t)
	ctx := context.Background()
	lease := clock.At(10 * time.Second)
	seedUser(t, svc.Store, models.User{
		Username:       "alice",
		Matchmaking:    true,
		MatchTarget:    models.TargetHuman,
		MatchLockUntil: &lease,
	})

	res, err := svc.Poll(ctx, "alice")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.State != PollWaiting {
		t.Fatalf("held lease should report waiting, got %v", res.State)
	}
	u := loadUser(t, svc.Store, "alice")
	if u.HumanAttempts != 0 {
		t.Fatalf("blocked poll must not count a miss: %d", u.HumanAttempts)
	}
}
