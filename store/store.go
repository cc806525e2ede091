// Package store is the only layer that touches the database. Every mutation
// it exposes is a single conditional update (predicate and write in one
// statement, RowsAffected as the success signal) or an atomic find-and-claim
// (row-locked select plus claiming update in one short transaction). The
// services above it never read-modify-write across separate calls without a
// guard from here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/AhaanV05/Reverse-Turing/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.JudgedRoom{},
		&models.AdminLog{},
	)
}

// locked adds a row lock to a claim query. Postgres gets FOR UPDATE SKIP
// LOCKED; sqlite (tests) has no row locks and its single-writer model covers
// the same race.
func (s *Store) locked(tx *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return tx
}

// ---- plain reads and inserts ----

func (s *Store) User(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Room(ctx context.Context, id string) (*models.Room, error) {
	var r models.Room
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) CreateRoom(ctx context.Context, r *models.Room) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) CreateAdminLog(ctx context.Context, l *models.AdminLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

// ActiveRoomFor returns the newest active room holding username in either
// seat, or nil.
func (s *Store) ActiveRoomFor(ctx context.Context, username string) (*models.Room, error) {
	var r models.Room
	err := s.db.WithContext(ctx).
		Where("active = ? AND (user1 = ? OR user2 = ?)", true, username, username).
		Order("created_at DESC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ---- conditional single-document updates ----

// UpdateUser applies updates to the named user only while cond holds.
// Returns whether any row was written.
func (s *Store) UpdateUser(ctx context.Context, username string, cond string, condArgs []interface{}, updates map[string]interface{}) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if cond != "" {
		q = q.Where(cond, condArgs...)
	}
	res := q.Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// UpdateRoom applies updates to the room only while cond holds.
func (s *Store) UpdateRoom(ctx context.Context, id string, cond string, condArgs []interface{}, updates map[string]interface{}) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id)
	if cond != "" {
		q = q.Where(cond, condArgs...)
	}
	res := q.Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// UpdateRoomDoc rewrites document fields (messages, guesses, clocks) under a
// compare-and-set on the revision the caller read. On success the in-memory
// revision is advanced so the caller may issue follow-up writes.
func (s *Store) UpdateRoomDoc(ctx context.Context, room *models.Room, updates map[string]interface{}) (bool, error) {
	updates["revision"] = room.Revision + 1
	res := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND revision = ?", room.ID, room.Revision).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	room.Revision++
	return true, nil
}

// IncrementScore adds delta to a user's score. Scores only ever move up.
func (s *Store) IncrementScore(ctx context.Context, username string, delta int64) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("score", gorm.Expr("score + ?", delta)).Error
}

// MarkJudged records that username judged roomID. Idempotent.
func (s *Store) MarkJudged(ctx context.Context, username, roomID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.JudgedRoom{Username: username, RoomID: roomID}).Error
}

func (s *Store) HasJudged(ctx context.Context, username, roomID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.JudgedRoom{}).
		Where("username = ? AND room_id = ?", username, roomID).
		Count(&n).Error
	return n > 0, err
}

// ReleaseActiveChat clears active_chat for the given users, but only where it
// still points at roomID.
func (s *Store) ReleaseActiveChat(ctx context.Context, roomID string, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("username IN ? AND active_chat = ?", usernames, roomID).
		Update("active_chat", nil).Error
}

// EndRoom deactivates the room (at most once; the active=true guard makes
// redundant calls no-ops) and releases both human seats. The revision bump
// fails any in-flight document rewrite that read the room while it was still
// live, so an ended room can never flip back to active.
func (s *Store) EndRoom(ctx context.Context, room *models.Room) error {
	applied, err := s.UpdateRoom(ctx, room.ID, "active = ?", []interface{}{true},
		map[string]interface{}{
			"active":   false,
			"revision": gorm.Expr("revision + 1"),
		})
	if err != nil {
		return err
	}
	if applied {
		room.Revision++
	}
	room.Active = false
	return s.ReleaseActiveChat(ctx, room.ID, room.HumanParticipants())
}

// ReleaseAILock drops the dispatcher's lease on a room.
func (s *Store) ReleaseAILock(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{"ai_lock_until": nil, "ai_lock_owner": ""}).Error
}

// ---- atomic find-and-claim ----

// ClaimRoomForAI claims one active AI room whose dispatch lease is absent or
// expired, stamping a fresh lease for owner. Returns nil when nothing is
// claimable.
func (s *Store) ClaimRoomForAI(ctx context.Context, owner string, now time.Time, lockFor time.Duration) (*models.Room, error) {
	lockUntil := now.Add(lockFor)
	var claimed *models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		q := s.locked(tx).
			Where("active = ? AND user2 = ? AND (ai_lock_until IS NULL OR ai_lock_until < ?)",
				true, models.AISentinel, now).
			Order("created_at ASC")
		if err := q.First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res := tx.Model(&models.Room{}).
			Where("id = ? AND (ai_lock_until IS NULL OR ai_lock_until < ?)", room.ID, now).
			Updates(map[string]interface{}{
				"ai_lock_until": lockUntil,
				"ai_lock_owner": owner,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		room.AILockUntil = &lockUntil
		room.AILockOwner = owner
		claimed = &room
		return nil
	})
	return claimed, err
}

// ClaimWaitingPartner atomically claims one waiting, unbanned, unleased user
// other than exclude, clearing their queue flag. This is the linearization
// point that prevents two pollers from pairing with the same partner.
func (s *Store) ClaimWaitingPartner(ctx context.Context, exclude string, now time.Time, lockUntil time.Time) (*models.User, error) {
	var claimed *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		q := s.locked(tx).
			Where("matchmaking = ? AND banned = ? AND active_chat IS NULL", true, false).
			Where("(match_lock_until IS NULL OR match_lock_until < ?)", now).
			Where("username <> ?", exclude).
			Order("created_at ASC")
		if err := q.First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res := tx.Model(&models.User{}).
			Where("username = ? AND matchmaking = ?", u.Username, true).
			Updates(map[string]interface{}{
				"matchmaking":      false,
				"human_attempts":   0,
				"match_target":     "",
				"match_lock_until": lockUntil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		u.Matchmaking = false
		u.HumanAttempts = 0
		u.MatchTarget = ""
		u.MatchLockUntil = &lockUntil
		claimed = &u
		return nil
	})
	return claimed, err
}

// ---- maintenance and reporting queries ----

// StaleTurnRooms lists active rooms whose turn clock started before cutoff.
func (s *Store) StaleTurnRooms(ctx context.Context, cutoff time.Time, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("active = ? AND turn_started IS NOT NULL AND turn_started < ?", true, cutoff).
		Limit(limit).
		Find(&rooms).Error
	return rooms, err
}

// ExpiredGuessRooms lists rooms whose grace window elapsed without being
// finalized.
func (s *Store) ExpiredGuessRooms(ctx context.Context, now time.Time, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("guess_timeout_handled = ? AND guess_lock_until IS NOT NULL AND guess_lock_until < ?", false, now).
		Limit(limit).
		Find(&rooms).Error
	return rooms, err
}

// UnarchivedEndedRooms lists inactive, guess-settled rooms not yet shipped to
// object storage. Deactivation precedes settlement (a solo room stays
// guessable after its limits close it; a human pair deactivates on the first
// guess with the grace window still open), so archiving waits for the
// verdicts: the handled flag for human pairs, a recorded guess for solo
// rooms.
func (s *Store) UnarchivedEndedRooms(ctx context.Context, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("active = ? AND archived = ?", false, false).
		Where("guess_timeout_handled = ? OR (user2 = ? AND guesses <> '{}')", true, models.AISentinel).
		Order("created_at ASC").
		Limit(limit).
		Find(&rooms).Error
	return rooms, err
}

// Leaderboard returns player accounts by descending score.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleUserAccount).
		Order("score DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// AdminLogs returns the newest audit rows.
func (s *Store) AdminLogs(ctx context.Context, limit int) ([]models.AdminLog, error) {
	var logs []models.AdminLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
