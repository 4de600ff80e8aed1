package store

import (
	"context"
	"errors"
	"testing"
)

func seedUser(t *testing.T, g *MemoryGateway, id, finger int) {
	t.Helper()
	if _, err := g.CreateHardwareUser(context.Background(), NewHardwareUser{ID: id, FingerID: finger}); err != nil {
		t.Fatalf("create hardware user %d: %v", id, err)
	}
}

func TestMemoryGatewayHardwareUserConflicts(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedUser(t, g, 5, 55)

	if _, err := g.CreateHardwareUser(ctx, NewHardwareUser{ID: 5, FingerID: 56}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
	if _, err := g.CreateHardwareUser(ctx, NewHardwareUser{ID: 6, FingerID: 55}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate finger id, got %v", err)
	}

	u, err := g.GetUserWithProfile(ctx, 5)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Profile != nil {
		t.Fatalf("expected no profile, got %+v", u.Profile)
	}
}

func TestMemoryGatewayProfileRequiresHardwareUser(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	_, err := g.CreateProfile(ctx, NewProfile{UserID: 9, Name: "Ada", Email: "ada@example.com"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	seedUser(t, g, 9, 90)
	if _, err := g.CreateProfile(ctx, NewProfile{UserID: 9, Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if _, err := g.CreateProfile(ctx, NewProfile{UserID: 9, Name: "Ada", Email: "other@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for second profile, got %v", err)
	}

	seedUser(t, g, 10, 100)
	if _, err := g.CreateProfile(ctx, NewProfile{UserID: 10, Name: "Bob", Email: "ADA@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestMemoryGatewayUpdateProfilePartial(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedUser(t, g, 1, 101)
	mobile := "9999999999"
	if _, err := g.CreateProfile(ctx, NewProfile{UserID: 1, Name: "Ada", Email: "ada@example.com", Mobile: &mobile}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	admin := RoleAdmin
	p, err := g.UpdateProfile(ctx, 1, ProfileUpdate{Role: &admin})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Role != RoleAdmin || p.Name != "Ada" || p.Mobile == nil || *p.Mobile != mobile {
		t.Fatalf("unexpected profile after partial update: %+v", p)
	}

	p, err = g.UpdateProfile(ctx, 1, ProfileUpdate{ClearMobile: true})
	if err != nil {
		t.Fatalf("clear mobile: %v", err)
	}
	if p.Mobile != nil {
		t.Fatalf("expected mobile cleared")
	}
}

func TestMemoryGatewayLogsJoinAndCascade(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedUser(t, g, 1, 101)
	seedUser(t, g, 2, 102)
	if _, err := g.CreateProfile(ctx, NewProfile{UserID: 1, Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	first, err := g.CreateAccessLog(ctx, NewAccessLog{UserID: 1, Outcome: OutcomeGranted, Note: "door"})
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	if _, err := g.CreateAccessLog(ctx, NewAccessLog{UserID: 2, Outcome: OutcomeDenied}); err != nil {
		t.Fatalf("create log: %v", err)
	}
	if _, err := g.CreateAccessLog(ctx, NewAccessLog{UserID: 42, Outcome: OutcomeDenied}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected dangling reference to be rejected, got %v", err)
	}

	view, err := g.GetAccessLog(ctx, first.ID)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if view.Name == nil || *view.Name != "Ada" {
		t.Fatalf("expected joined name, got %+v", view)
	}

	recent, err := g.RecentAccessLogs(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || *recent[0].UserID != 2 {
		t.Fatalf("expected newest entry first, got %+v", recent)
	}

	stats, err := g.SystemStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalAccessLogs != 2 || stats.AccessGrantedToday != 1 || stats.AccessDeniedToday != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := g.DeleteHardwareUser(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := g.GetProfileByUserID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected profile cascade, got %v", err)
	}
	logs, err := g.UserAccessLogs(ctx, 1)
	if err != nil {
		t.Fatalf("user logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected logs cascade, got %d entries", len(logs))
	}
	if err := g.DeleteHardwareUser(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
