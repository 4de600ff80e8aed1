package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Source is the REST side the monitor polls.
type Source interface {
	RecentLogs(ctx context.Context, limit int) ([]store.AccessLogView, error)
	Users(ctx context.Context) ([]store.UserWithProfile, error)
	Stats(ctx context.Context) (store.SystemStats, error)
}

// Intervals are the poll periods of the monitor.
type Intervals struct {
	Logs   time.Duration
	Stats  time.Duration
	Roster time.Duration
}

// DefaultIntervals match the web dashboard.
var DefaultIntervals = Intervals{
	Logs:   3 * time.Second,
	Stats:  5 * time.Second,
	Roster: 10 * time.Second,
}

// Monitor keeps a Cache current from polls and pushes and calls OnChange
// after every update.
type Monitor struct {
	source    Source
	cache     *Cache
	logger    *slog.Logger
	intervals Intervals
	limit     int

	// OnChange, when set, is called after the cache changes.
	OnChange func(Snapshot)

	refetch chan struct{}
	mu      sync.Mutex
}

// NewMonitor wires a monitor over source and cache.
func NewMonitor(source Source, cache *Cache, logger *slog.Logger, intervals Intervals) *Monitor {
	if intervals.Logs <= 0 {
		intervals.Logs = DefaultIntervals.Logs
	}
	if intervals.Stats <= 0 {
		intervals.Stats = DefaultIntervals.Stats
	}
	if intervals.Roster <= 0 {
		intervals.Roster = DefaultIntervals.Roster
	}
	return &Monitor{
		source:    source,
		cache:     cache,
		logger:    logger,
		intervals: intervals,
		limit:     defaultDisplayLimit,
		refetch:   make(chan struct{}, 1),
	}
}

// HandleLog applies a pushed entry and schedules a refetch.
func (m *Monitor) HandleLog(ctx context.Context, entry store.AccessLogView) {
	added, err := m.cache.ApplyPush(ctx, entry)
	if err != nil {
		m.logger.Warn("persist live logs", "error", err)
	}
	if !added {
		return
	}
	m.changed()
	select {
	case m.refetch <- struct{}{}:
	default:
	}
}

// HandleStatus records hardware connectivity.
func (m *Monitor) HandleStatus(_ context.Context, connected bool) {
	m.cache.SetConnected(connected)
	m.changed()
}

// Refresh polls logs, roster and stats once and joins their errors.
func (m *Monitor) Refresh(ctx context.Context) error {
	return errors.Join(m.pollLogs(ctx), m.pollRoster(ctx), m.pollStats(ctx))
}

// Run polls until ctx is cancelled. It performs an initial Refresh and returns
// its error if the session is rejected.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		if IsUnauthorized(err) {
			return err
		}
		m.logger.Warn("initial refresh failed", "error", err)
	}

	logs := time.NewTicker(m.intervals.Logs)
	stats := time.NewTicker(m.intervals.Stats)
	roster := time.NewTicker(m.intervals.Roster)
	defer logs.Stop()
	defer stats.Stop()
	defer roster.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-logs.C:
			m.report(m.pollLogs(ctx))
		case <-stats.C:
			m.report(m.pollStats(ctx))
		case <-roster.C:
			m.report(m.pollRoster(ctx))
		case <-m.refetch:
			m.report(m.Refresh(ctx))
		}
	}
}

func (m *Monitor) pollLogs(ctx context.Context) error {
	logs, err := m.source.RecentLogs(ctx, m.limit)
	if err != nil {
		return err
	}
	m.cache.ApplySnapshot(logs)
	m.changed()
	return nil
}

func (m *Monitor) pollRoster(ctx context.Context) error {
	users, err := m.source.Users(ctx)
	if err != nil {
		return err
	}
	healed, err := m.cache.ApplyRoster(ctx, users)
	if err != nil {
		m.logger.Warn("persist live logs", "error", err)
	}
	if healed > 0 {
		m.logger.Debug("resolved live entries", "count", healed)
		m.changed()
	}
	return nil
}

func (m *Monitor) pollStats(ctx context.Context) error {
	stats, err := m.source.Stats(ctx)
	if err != nil {
		return err
	}
	m.cache.SetStats(stats)
	m.changed()
	return nil
}

func (m *Monitor) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	m.logger.Warn("poll failed", "error", err)
}

func (m *Monitor) changed() {
	if m.OnChange == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OnChange(m.cache.View())
}
