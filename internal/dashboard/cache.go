package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/authintegrate/authintegrate/internal/store"
)

const (
	defaultLiveCapacity = 20
	defaultDisplayLimit = 50
	defaultHighlight    = time.Second
)

// Persister keeps the live sequence across restarts.
type Persister interface {
	Load(ctx context.Context) ([]store.AccessLogView, error)
	Save(ctx context.Context, live []store.AccessLogView) error
}

// Cache holds the live (pushed) and snapshot (polled) access logs, the user
// roster used to resolve names, and the latest statistics. It is safe for
// concurrent use; every mutation is idempotent with respect to re-application.
type Cache struct {
	mu          sync.Mutex
	live        []store.AccessLogView
	snapshot    []store.AccessLogView
	roster      map[int]store.UserWithProfile
	highlighted map[int64]time.Time
	stats       store.SystemStats
	connected   bool

	persister    Persister
	liveCapacity int
	displayLimit int
	highlightFor time.Duration
	now          func() time.Time
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithLimits overrides the live capacity and display limit.
func WithLimits(liveCapacity, displayLimit int) CacheOption {
	return func(c *Cache) {
		c.liveCapacity = liveCapacity
		c.displayLimit = displayLimit
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache builds a cache and rehydrates the live sequence from p, which may
// be nil.
func NewCache(ctx context.Context, p Persister, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		roster:       make(map[int]store.UserWithProfile),
		highlighted:  make(map[int64]time.Time),
		persister:    p,
		liveCapacity: defaultLiveCapacity,
		displayLimit: defaultDisplayLimit,
		highlightFor: defaultHighlight,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if p != nil {
		live, err := p.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(live) > c.liveCapacity {
			live = live[:c.liveCapacity]
		}
		c.live = live
	}
	return c, nil
}

// ApplyPush adds a pushed entry to the live sequence. It returns false when
// the id is already held, in which case nothing changes.
func (c *Cache) ApplyPush(ctx context.Context, e store.AccessLogView) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.live {
		if l.ID == e.ID {
			return false, nil
		}
	}
	if unresolved(e) {
		e = c.resolve(e)
	}

	live := make([]store.AccessLogView, 0, len(c.live)+1)
	live = append(live, e)
	live = append(live, c.live...)
	if len(live) > c.liveCapacity {
		live = live[:c.liveCapacity]
	}
	c.live = live
	c.highlighted[e.ID] = c.now()
	return true, c.persist(ctx)
}

// ApplySnapshot replaces the polled sequence.
func (c *Cache) ApplySnapshot(entries []store.AccessLogView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = append([]store.AccessLogView(nil), entries...)
}

// ApplyRoster replaces the roster and back-fills every live entry whose owner
// was unresolved. It reports how many entries were healed.
func (c *Cache) ApplyRoster(ctx context.Context, users []store.UserWithProfile) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roster = make(map[int]store.UserWithProfile, len(users))
	for _, u := range users {
		c.roster[u.ID] = u
	}

	healed := 0
	for i, e := range c.live {
		if !unresolved(e) {
			continue
		}
		resolved := c.resolve(e)
		if !unresolved(resolved) {
			c.live[i] = resolved
			healed++
		}
	}
	if healed == 0 {
		return 0, nil
	}
	return healed, c.persist(ctx)
}

// SetStats records the latest statistics.
func (c *Cache) SetStats(s store.SystemStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
	c.connected = s.HardwareConnected
}

// SetConnected records hardware connectivity reported over the stream.
func (c *Cache) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// Snapshot is a consistent copy of the cache for rendering.
type Snapshot struct {
	Entries     []store.AccessLogView
	Highlighted map[int64]bool
	Stats       store.SystemStats
	Connected   bool
	SuccessRate int
}

// View returns the merged entries and current status.
func (c *Cache) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	hl := make(map[int64]bool)
	for id, at := range c.highlighted {
		if now.Sub(at) < c.highlightFor {
			hl[id] = true
		} else {
			delete(c.highlighted, id)
		}
	}
	return Snapshot{
		Entries:     Merge(c.live, c.snapshot, c.displayLimit),
		Highlighted: hl,
		Stats:       c.stats,
		Connected:   c.connected,
		SuccessRate: SuccessRate(c.stats.AccessGrantedToday, c.stats.AccessDeniedToday),
	}
}

// Live returns a copy of the live sequence.
func (c *Cache) Live() []store.AccessLogView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]store.AccessLogView(nil), c.live...)
}

func (c *Cache) resolve(e store.AccessLogView) store.AccessLogView {
	if e.UserID != nil {
		if u, ok := c.roster[*e.UserID]; ok && u.Profile != nil {
			name, email := u.Profile.Name, u.Profile.Email
			e.Name = &name
			e.Email = &email
			e.Mobile = u.Profile.Mobile
			return e
		}
	}
	unknown := UnknownName
	e.Name = &unknown
	return e
}

func (c *Cache) persist(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	return c.persister.Save(ctx, c.live)
}
