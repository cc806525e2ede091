package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AhaanV05/Reverse-Turing/middleware"
	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/store"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// AdminService covers account provisioning and moderation-adjacent toggles.
// Users are only ever created here; gameplay never creates accounts.
type AdminService struct {
	Store     *store.Store
	JWTSecret string
}

func NewAdminService(st *store.Store, jwtSecret string) *AdminService {
	return &AdminService{Store: st, JWTSecret: jwtSecret}
}

// Login checks credentials and returns the account's long-lived token for
// the cookie.
func (s *AdminService) Login(ctx context.Context, username, password, role string) (*models.User, error) {
	user, err := s.Store.User(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password != password || user.Role != role {
		return nil, Unauthorizedf("invalid credentials")
	}
	return user, nil
}

// CreateUser provisions a player account. Usernames are slug-normalized
// since they travel in URLs and cookies.
func (s *AdminService) CreateUser(ctx context.Context, admin, username, password string) (*models.User, error) {
	normalized := slug.Make(username)
	if normalized == "" {
		return nil, Conflictf("username is empty after normalization")
	}
	existing, err := s.Store.User(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflictf("username already exists")
	}

	token, err := middleware.GenerateToken(normalized, models.RoleUserAccount, s.JWTSecret)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: normalized,
		Password: password,
		Token:    token,
		Role:     models.RoleUserAccount,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.audit(ctx, admin, fmt.Sprintf("Created user: %s", normalized))
	return user, nil
}

// EnsureAdmin bootstraps the first admin account at startup. A no-op when
// the username already exists, so restarts never clobber a rotated password.
func (s *AdminService) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.Store.User(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	token, err := middleware.GenerateToken(username, models.RoleAdminAccount, s.JWTSecret)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username: username,
		Password: password,
		Token:    token,
		Role:     models.RoleAdminAccount,
	}
	if err := s.Store.CreateUser(ctx, admin); err != nil {
		return err
	}
	s.audit(ctx, username, fmt.Sprintf("Provisioned admin: %s", username))
	return nil
}

// SetBanned flips the ban flag. Banned users are excluded from partner
// claims but existing rooms are left to run out naturally.
func (s *AdminService) SetBanned(ctx context.Context, admin, username string, banned bool) error {
	applied, err := s.Store.UpdateUser(ctx, username, "", nil, map[string]interface{}{"banned": banned})
	if err != nil {
		return err
	}
	if !applied {
		return NotFoundf("user %s not found", username)
	}
	action := "Banned"
	if !banned {
		action = "Unbanned"
	}
	s.audit(ctx, admin, fmt.Sprintf("%s user: %s", action, username))
	return nil
}

func (s *AdminService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Store.Leaderboard(ctx, limit)
}

func (s *AdminService) Logs(ctx context.Context, limit int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Store.AdminLogs(ctx, limit)
}

func (s *AdminService) audit(ctx context.Context, admin, action string) {
	entry := &models.AdminLog{
		ID:        uuid.NewString(),
		Admin:     admin,
		Action:    action,
		CreatedAt: time.Now(),
	}
	if err := s.Store.CreateAdminLog(ctx, entry); err != nil {
		log.Printf("[Admin] failed to write audit log (%s): %v", action, err)
	}
}
