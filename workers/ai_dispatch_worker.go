package workers

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/services"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/AhaanV05/Reverse-Turing/utils"
)

// AIDispatchWorker is the background loop that speaks for the bot. Each cycle
// it claims a bounded batch of AI rooms via lease-guarded find-and-claim,
// processes them concurrently, and releases every lease no matter how
// processing went. A crash leaves at worst one expired lease, which the next
// cycle reclaims.
type AIDispatchWorker struct {
	Store    *store.Store
	Provider services.CompletionProvider

	BatchSize int
	Interval  time.Duration
	Owner     string
	Now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	// pacing override for tests
	pace func(room *models.Room, completion string) time.Duration
}

func NewAIDispatchWorker(st *store.Store, provider services.CompletionProvider) *AIDispatchWorker {
	w := &AIDispatchWorker{
		Store:     st,
		Provider:  provider,
		BatchSize: 200,
		Interval:  200 * time.Millisecond,
		Owner:     fmt.Sprintf("dispatch-%d", os.Getpid()),
		Now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	w.pace = w.computeDelay
	return w
}

func (w *AIDispatchWorker) Start(ctx context.Context) {
	log.Println("Starting AI dispatch worker...")
	for {
		select {
		case <-ctx.Done():
			log.Println("AI dispatch worker stopped.")
			return
		default:
		}
		if n := w.runCycle(ctx); n == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.Interval):
			}
		}
	}
}

// runCycle claims up to BatchSize rooms and processes them concurrently.
// Returns the number of rooms acted on (replied to or ended), not the number
// claimed: rooms waiting on the human are claimed and released every cycle,
// and must not keep the loop from its idle pause.
func (w *AIDispatchWorker) runCycle(ctx context.Context) int {
	var claimed []*models.Room
	for len(claimed) < w.BatchSize {
		room, err := w.Store.ClaimRoomForAI(ctx, w.Owner, w.Now(), services.AILockDuration)
		if err != nil {
			log.Printf("[Dispatch] claim failed: %v", err)
			break
		}
		if room == nil {
			break
		}
		claimed = append(claimed, room)
	}

	var wg sync.WaitGroup
	var acted int32
	for _, room := range claimed {
		wg.Add(1)
		go func(r *models.Room) {
			defer wg.Done()
			if w.process(ctx, r) {
				atomic.AddInt32(&acted, 1)
			}
		}(room)
	}
	wg.Wait()
	return int(acted)
}

// ShouldAISpeak decides whether the bot owes a reply: either the human spoke
// after the bot's last message, or the human has gone quiet long enough for
// the one allowed nudge per idle period.
func ShouldAISpeak(room *models.Room, now time.Time) (speak bool, nudge bool) {
	if room.ConversationCount() == 0 {
		return room.First == models.AISentinel, false
	}
	if room.LastUserAt != nil && (room.LastAIAt == nil || room.LastUserAt.After(*room.LastAIAt)) {
		return true, false
	}
	if !room.AINudged && room.LastUserAt != nil && now.Sub(*room.LastUserAt) > services.AINudgeAfter {
		return true, true
	}
	return false, false
}

// computeDelay models human pacing: reading plus typing time at AverageWPM
// over the larger of the input and the reply, a random thinking pause, and
// jitter, clamped to [MinAIDelay, MaxAIDelay].
func (w *AIDispatchWorker) computeDelay(room *models.Room, completion string) time.Duration {
	inputWords := utils.WordCount(room.LastHumanMessage())
	outputWords := utils.WordCount(completion)
	words := inputWords
	if outputWords > words {
		words = outputWords
	}
	base := time.Duration(float64(words) / services.AverageWPM * 60 * float64(time.Second))

	w.mu.Lock()
	think := services.ThinkMin + time.Duration(w.rng.Float64()*float64(services.ThinkMax-services.ThinkMin))
	jitter := time.Duration((w.rng.Float64()*4 - 1.5) * float64(time.Second))
	w.mu.Unlock()

	delay := base + think + jitter
	if delay < services.MinAIDelay {
		return services.MinAIDelay
	}
	if delay > services.MaxAIDelay {
		return services.MaxAIDelay
	}
	return delay
}

// process generates and posts one reply for a claimed room, reporting
// whether it replied or ended the room. The lease is released on every path;
// errors are logged and must never kill the loop.
func (w *AIDispatchWorker) process(ctx context.Context, room *models.Room) bool {
	defer func() {
		if err := w.Store.ReleaseAILock(ctx, room.ID); err != nil {
			log.Printf("[Dispatch] failed to release lock on room %s: %v", room.ID, err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatch] panic processing room %s: %v", room.ID, r)
		}
	}()

	now := w.Now()
	speak, nudge := ShouldAISpeak(room, now)
	if !speak {
		return false
	}

	if room.TurnTimedOut(now, services.TurnTimeout) {
		if err := w.Store.EndRoom(ctx, room); err != nil {
			log.Printf("[Dispatch] failed to time out room %s: %v", room.ID, err)
		}
		return true
	}
	humanCount, aiCount := room.Counts()
	if humanCount >= services.MaxMessagesPerUser && aiCount >= services.MaxMessagesPerUser {
		if err := w.Store.EndRoom(ctx, room); err != nil {
			log.Printf("[Dispatch] failed to close exhausted room %s: %v", room.ID, err)
		}
		return true
	}

	callStarted := time.Now()
	completion, err := w.Provider.Complete(ctx, room.Messages)
	if err != nil {
		// transient: leave the turn state alone so the next cycle retries
		log.Printf("[Dispatch] completion failed for room %s: %v", room.ID, err)
		return false
	}
	callElapsed := time.Since(callStarted)

	completion = utils.TrimToWordLimit(completion, services.MaxWordsPerMessage)
	if remaining := w.pace(room, completion) - callElapsed; remaining > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}

	// Re-read before appending: the human may have sent, guessed or timed
	// out the room while we were pacing.
	fresh, err := w.Store.Room(ctx, room.ID)
	if err != nil || fresh == nil {
		log.Printf("[Dispatch] room %s vanished before reply: %v", room.ID, err)
		return false
	}
	if !fresh.Active {
		return false
	}

	now = w.Now()
	humanCount, aiCount = fresh.Counts()
	shouldEnd := aiCount+1 >= services.MaxMessagesPerUser && humanCount >= services.MaxMessagesPerUser
	firstExchange := fresh.ConversationCount() == 0

	messages := append(fresh.Messages, models.Message{
		Role:    models.RoleAssistant,
		Content: completion,
		Sender:  models.AISentinel,
		SentAt:  now,
	})
	updates := map[string]interface{}{
		"messages":     messages,
		"active":       !shouldEnd,
		"turn_started": now,
		"last_ai_at":   now,
	}
	if nudge {
		updates["ai_nudged"] = true
	}
	if firstExchange {
		updates["session_start"] = now
	}

	applied, err := w.Store.UpdateRoomDoc(ctx, fresh, updates)
	if err != nil {
		log.Printf("[Dispatch] failed to post reply to room %s: %v", room.ID, err)
		return false
	}
	if !applied {
		// lost the revision race; next cycle re-evaluates
		return false
	}
	if shouldEnd {
		if err := w.Store.ReleaseActiveChat(ctx, fresh.ID, fresh.HumanParticipants()); err != nil {
			log.Printf("[Dispatch] failed to release seats of room %s: %v", room.ID, err)
		}
	}
	return true
}
