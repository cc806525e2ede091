package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/AhaanV05/Reverse-Turing/utils"
)

// TranscriptArchiveWorker ships finished conversations to object storage.
// Rooms are marked archived only after a successful upload, so a failed cycle
// just retries later.
type TranscriptArchiveWorker struct {
	Store     *store.Store
	Interval  time.Duration
	BatchSize int
}

func NewTranscriptArchiveWorker(st *store.Store) *TranscriptArchiveWorker {
	return &TranscriptArchiveWorker{
		Store:     st,
		Interval:  time.Minute,
		BatchSize: 50,
	}
}

type transcript struct {
	RoomID    string             `json:"room_id"`
	User1     string             `json:"user1"`
	User2     string             `json:"user2"`
	First     string             `json:"first"`
	Messages  models.MessageList `json:"messages"`
	Guesses   models.GuessMap    `json:"guesses"`
	CreatedAt time.Time          `json:"created_at"`
	EndedAt   time.Time          `json:"ended_at"`
}

func (w *TranscriptArchiveWorker) Start(ctx context.Context) {
	log.Println("Starting transcript archive worker...")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Transcript archive worker stopped.")
			return
		case <-ticker.C:
			if err := w.runCycle(ctx); err != nil {
				log.Printf("[Archive] cycle failed: %v", err)
			}
		}
	}
}

func (w *TranscriptArchiveWorker) runCycle(ctx context.Context) error {
	rooms, err := w.Store.UnarchivedEndedRooms(ctx, w.BatchSize)
	if err != nil {
		return err
	}
	for i := range rooms {
		if err := w.archive(ctx, &rooms[i]); err != nil {
			log.Printf("[Archive] failed to archive room %s: %v", rooms[i].ID, err)
		}
	}
	return nil
}

func (w *TranscriptArchiveWorker) archive(ctx context.Context, room *models.Room) error {
	body, err := json.Marshal(transcript{
		RoomID:    room.ID,
		User1:     room.User1,
		User2:     room.User2,
		First:     room.First,
		Messages:  room.Messages,
		Guesses:   room.Guesses,
		CreatedAt: room.CreatedAt,
		EndedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("transcripts/%s.json", room.ID)
	if _, err := utils.UploadBytesToR2(ctx, key, body, "application/json"); err != nil {
		return err
	}

	_, err = w.Store.UpdateRoom(ctx, room.ID, "archived = ?", []interface{}{false},
		map[string]interface{}{"archived": true})
	return err
}
