package services

import (
	"context"
	"testing"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := store.New(db)
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *store.Store, u models.User) *models.User {
	t.Helper()
	if u.Password == "" {
		u.Password = "pw"
	}
	if u.Token == "" {
		u.Token = "tok-" + u.Username
	}
	if u.Role == "" {
		u.Role = models.RoleUserAccount
	}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", u.Username, err)
	}
	return &u
}

func seedRoom(t *testing.T, s *store.Store, r models.Room) *models.Room {
	t.Helper()
	if err := s.CreateRoom(context.Background(), &r); err != nil {
		t.Fatalf("seed room %s: %v", r.ID, err)
	}
	return &r
}

func loadRoom(t *testing.T, s *store.Store, id string) *models.Room {
	t.Helper()
	room, err := s.Room(context.Background(), id)
	if err != nil {
		t.Fatalf("load room %s: %v", id, err)
	}
	if room == nil {
		t.Fatalf("room %s missing", id)
	}
	return room
}

func loadUser(t *testing.T, s *store.Store, username string) *models.User {
	t.Helper()
	u, err := s.User(context.Background(), username)
	if err != nil {
		t.Fatalf("load user %s: %v", username, err)
	}
	if u == nil {
		t.Fatalf("user %s missing", username)
	}
	return u
}

// fixedClock returns a Now func pinned to base plus an adjustable offset.
type fixedClock struct {
	base   time.Time
	offset time.Duration
}

func newFixedClock() *fixedClock {
	return &fixedClock{base: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time              { return c.base.Add(c.offset) }
func (c *fixedClock) Advance(d time.Duration)     { c.offset += d }
func (c *fixedClock) At(d time.Duration) time.Time { return c.base.Add(d) }
