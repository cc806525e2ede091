package services

import (
	"context"
	"testing"

	"github.com/AhaanV05/Reverse-Turing/models"
)

func newTestAdmin(t *testing.T) *AdminService {
	t.Helper()
	return NewAdminService(newTestStore(t), "test-secret")
}

func TestCreateUserNormalizesUsername(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "root", "Ahaan V!", "pw")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Username != "ahaan-v" {
		t.Fatalf("username = %q", user.Username)
	}
	if user.Token == "" {
		t.Fatal("no token issued")
	}
	if user.Role != models.RoleUserAccount {
		t.Fatalf("role = %q", user.Role)
	}

	_, err = svc.CreateUser(ctx, "root", "ahaan v", "pw2")
	if !IsCode(err, CodeConflict) {
		t.Fatalf("duplicate create: %v", err)
	}

	logs, err := svc.Logs(ctx, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("audit logs: %#v err=%v", logs, err)
	}
}

func TestEnsureAdminBootstrapsOnce(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "root", "hunter2"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	admin := loadUser(t, svc.Store, "root")
	if admin.Role != models.RoleAdminAccount {
		t.Fatalf("role = %q", admin.Role)
	}
	if admin.Token == "" {
		t.Fatal("no token issued")
	}
	if _, err := svc.Login(ctx, "root", "hunter2", models.RoleAdminAccount); err != nil {
		t.Fatalf("admin login: %v", err)
	}

	// restart with a rotated password must not clobber the stored one
	if err := svc.EnsureAdmin(ctx, "root", "rotated"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if loadUser(t, svc.Store, "root").Password != "hunter2" {
		t.Fatal("existing admin was overwritten")
	}

	logs, err := svc.Logs(ctx, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("audit logs: %#v err=%v", logs, err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice", Password: "right", Role: models.RoleUserAccount})

	if _, err := svc.Login(ctx, "alice", "right", models.RoleUserAccount); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong", models.RoleUserAccount); !IsCode(err, CodeUnauthorized) {
		t.Fatalf("bad password: %v", err)
	}
	// a player cannot use the admin door
	if _, err := svc.Login(ctx, "alice", "right", models.RoleAdminAccount); !IsCode(err, CodeUnauthorized) {
		t.Fatalf("role mismatch: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "x", models.RoleUserAccount); !IsCode(err, CodeUnauthorized) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestSetBanned(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "alice"})

	if err := svc.SetBanned(ctx, "root", "alice", true); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !loadUser(t, svc.Store, "alice").Banned {
		t.Fatal("not banned")
	}
	if err := svc.SetBanned(ctx, "root", "alice", false); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if loadUser(t, svc.Store, "alice").Banned {
		t.Fatal("still banned")
	}
	if err := svc.SetBanned(ctx, "root", "ghost", true); !IsCode(err, CodeNotFound) {
		t.Fatalf("missing user: %v", err)
	}
}

func TestLeaderboardOrdersByScore(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()
	seedUser(t, svc.Store, models.User{Username: "low", Score: 10})
	seedUser(t, svc.Store, models.User{Username: "high", Score: 300})
	seedUser(t, svc.Store, models.User{Username: "mid", Score: 150})
	seedUser(t, svc.Store, models.User{Username: "boss", Score: 999, Role: models.RoleAdminAccount})

	users, err := svc.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("admin accounts leaked onto the board: %d rows", len(users))
	}
	if users[0].Username != "high" || users[1].Username != "mid" || users[2].Username != "low" {
		t.Fatalf("unexpected order: %v %v %v", users[0].Username, users[1].Username, users[2].Username)
	}
}
