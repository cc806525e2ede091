// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic sweep that backs up the lazy,
// read-triggered transitions: when nobody is polling a room, the sweep is
// what eventually times out its turn or finalizes its guess window.
func StartMaintenanceScheduler(rooms *RoomService, guesses *GuessService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			ctx := context.Background()
			now := rooms.Now()

			stale, err := rooms.Store.StaleTurnRooms(ctx, now.Add(-TurnTimeout), 100)
			if err != nil {
				log.Printf("[Maintenance] stale-turn query failed: %v", err)
			}
			for i := range stale {
				room := stale[i]
				if err := rooms.Store.EndRoom(ctx, &room); err != nil {
					log.Printf("[Maintenance] failed to time out room %s: %v", room.ID, err)
				}
			}

			expired, err := guesses.Store.ExpiredGuessRooms(ctx, now, 100)
			if err != nil {
				log.Printf("[Maintenance] expired-guess query failed: %v", err)
			}
			for i := range expired {
				room := expired[i]
				if err := guesses.FinalizeGuessTimeout(ctx, &room); err != nil {
					log.Printf("[Maintenance] failed to finalize room %s: %v", room.ID, err)
				}
			}
		}),
	)
}
