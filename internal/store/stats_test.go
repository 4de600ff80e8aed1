package store

import (
	"context"
	"testing"
	"time"
)

func TestStartOfDayUsesGivenZone(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on March 1 is already March 2 in UTC+3
	now := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)

	got := StartOfDay(now, zone)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, zone)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := StartOfDay(now, time.UTC); !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected UTC midnight %v", got)
	}
}

func TestMemoryGatewayStatsCountFromLocalMidnight(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedUser(t, g, 1, 101)

	today := StartOfDay(time.Now(), time.Local).Add(12 * time.Hour)
	clock := today.Add(-24 * time.Hour)
	g.now = func() time.Time { return clock }

	if _, err := g.CreateAccessLog(ctx, NewAccessLog{UserID: 1, Outcome: OutcomeGranted}); err != nil {
		t.Fatalf("create log: %v", err)
	}
	clock = today
	if _, err := g.CreateAccessLog(ctx, NewAccessLog{UserID: 1, Outcome: OutcomeDenied}); err != nil {
		t.Fatalf("create log: %v", err)
	}

	stats, err := g.SystemStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAccessLogs != 2 || stats.AccessGrantedToday != 0 || stats.AccessDeniedToday != 1 {
		t.Fatalf("yesterday's entry must not count as today: %+v", stats)
	}
}
