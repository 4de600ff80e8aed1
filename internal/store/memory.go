package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryGateway is an in-memory Gateway used in development mode and tests.
// It enforces the same unique keys and cascades as the Postgres schema.
type MemoryGateway struct {
	mu          sync.RWMutex
	users       map[int]memoryUser
	profiles    map[int]Credentials // keyed by user id
	logs        []AccessLogEntry
	nextProfile int
	nextLog     int64
	now         func() time.Time
}

type memoryUser struct {
	user           HardwareUser
	credentialHash []byte
}

// NewMemoryGateway builds an empty in-memory store.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:    make(map[int]memoryUser),
		profiles: make(map[int]Credentials),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *MemoryGateway) GetHardwareUser(_ context.Context, id int) (HardwareUser, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[id]
	if !ok {
		return HardwareUser{}, fmt.Errorf("hardware user %d: %w", id, ErrNotFound)
	}
	return u.user, nil
}

func (g *MemoryGateway) CreateHardwareUser(_ context.Context, in NewHardwareUser) (HardwareUser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.users[in.ID]; exists {
		return HardwareUser{}, fmt.Errorf("hardware user %d: %w", in.ID, ErrConflict)
	}
	for _, u := range g.users {
		if u.user.FingerID == in.FingerID {
			return HardwareUser{}, fmt.Errorf("finger id %d: %w", in.FingerID, ErrConflict)
		}
	}
	user := HardwareUser{ID: in.ID, FingerID: in.FingerID, CreatedAt: g.now()}
	g.users[in.ID] = memoryUser{user: user, credentialHash: in.CredentialHash}
	return user, nil
}

func (g *MemoryGateway) DeleteHardwareUser(_ context.Context, id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[id]; !ok {
		return fmt.Errorf("hardware user %d: %w", id, ErrNotFound)
	}
	delete(g.users, id)
	delete(g.profiles, id)
	kept := g.logs[:0]
	for _, l := range g.logs {
		if l.UserID != nil && *l.UserID == id {
			continue
		}
		kept = append(kept, l)
	}
	g.logs = kept
	return nil
}

func (g *MemoryGateway) GetProfileByUserID(ctx context.Context, userID int) (Profile, error) {
	creds, err := g.GetCredentialsByUserID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return creds.Profile, nil
}

func (g *MemoryGateway) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	creds, err := g.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	return creds.Profile, nil
}

func (g *MemoryGateway) GetCredentialsByEmail(_ context.Context, email string) (Credentials, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.profiles {
		if strings.EqualFold(c.Profile.Email, email) {
			return c, nil
		}
	}
	return Credentials{}, fmt.Errorf("profile %q: %w", email, ErrNotFound)
}

func (g *MemoryGateway) GetCredentialsByUserID(_ context.Context, userID int) (Credentials, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.profiles[userID]
	if !ok {
		return Credentials{}, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	return c, nil
}

func (g *MemoryGateway) CreateProfile(_ context.Context, in NewProfile) (Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[in.UserID]; !ok {
		return Profile{}, fmt.Errorf("hardware user %d: %w", in.UserID, ErrNotFound)
	}
	if _, exists := g.profiles[in.UserID]; exists {
		return Profile{}, fmt.Errorf("profile for user %d: %w", in.UserID, ErrConflict)
	}
	if g.emailTaken(in.Email, -1) {
		return Profile{}, fmt.Errorf("email %q: %w", in.Email, ErrConflict)
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	g.nextProfile++
	p := Profile{
		ID:        g.nextProfile,
		UserID:    in.UserID,
		Name:      in.Name,
		Email:     in.Email,
		Mobile:    in.Mobile,
		Role:      role,
		CreatedAt: g.now(),
	}
	g.profiles[in.UserID] = Credentials{Profile: p, PasswordHash: in.PasswordHash}
	return p, nil
}

func (g *MemoryGateway) UpdateProfile(_ context.Context, userID int, upd ProfileUpdate) (Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.profiles[userID]
	if !ok {
		return Profile{}, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	if upd.Email != nil && g.emailTaken(*upd.Email, userID) {
		return Profile{}, fmt.Errorf("email %q: %w", *upd.Email, ErrConflict)
	}
	if upd.Name != nil {
		c.Profile.Name = *upd.Name
	}
	if upd.Email != nil {
		c.Profile.Email = *upd.Email
	}
	if upd.ClearMobile {
		c.Profile.Mobile = nil
	} else if upd.Mobile != nil {
		m := *upd.Mobile
		c.Profile.Mobile = &m
	}
	if upd.Role != nil {
		c.Profile.Role = *upd.Role
	}
	g.profiles[userID] = c
	return c.Profile, nil
}

func (g *MemoryGateway) GetUserWithProfile(_ context.Context, id int) (UserWithProfile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[id]
	if !ok {
		return UserWithProfile{}, fmt.Errorf("hardware user %d: %w", id, ErrNotFound)
	}
	return g.joinUser(u.user), nil
}

func (g *MemoryGateway) ListUsersWithProfiles(_ context.Context) ([]UserWithProfile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]UserWithProfile, 0, len(g.users))
	for _, u := range g.users {
		out = append(out, g.joinUser(u.user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) CreateAccessLog(_ context.Context, in NewAccessLog) (AccessLogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[in.UserID]; !ok {
		return AccessLogEntry{}, fmt.Errorf("hardware user %d: %w", in.UserID, ErrNotFound)
	}
	g.nextLog++
	uid := in.UserID
	entry := AccessLogEntry{
		ID:        g.nextLog,
		UserID:    &uid,
		Outcome:   in.Outcome,
		Note:      in.Note,
		CreatedAt: g.now(),
	}
	g.logs = append(g.logs, entry)
	return entry, nil
}

func (g *MemoryGateway) GetAccessLog(_ context.Context, id int64) (AccessLogView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, l := range g.logs {
		if l.ID == id {
			return g.joinLog(l), nil
		}
	}
	return AccessLogView{}, fmt.Errorf("access log %d: %w", id, ErrNotFound)
}

func (g *MemoryGateway) RecentAccessLogs(_ context.Context, limit int) ([]AccessLogView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := g.newestFirst(func(AccessLogEntry) bool { return true })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) UserAccessLogs(_ context.Context, userID int) ([]AccessLogView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.newestFirst(func(l AccessLogEntry) bool {
		return l.UserID != nil && *l.UserID == userID
	}), nil
}

func (g *MemoryGateway) SystemStats(_ context.Context) (SystemStats, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := SystemStats{
		TotalUsers:      int64(len(g.users)),
		TotalAccessLogs: int64(len(g.logs)),
	}
	since := StartOfDay(g.now(), time.Local)
	for _, l := range g.logs {
		if l.CreatedAt.Before(since) {
			continue
		}
		switch l.Outcome {
		case OutcomeGranted:
			stats.AccessGrantedToday++
		case OutcomeDenied:
			stats.AccessDeniedToday++
		}
	}
	return stats, nil
}

func (g *MemoryGateway) emailTaken(email string, exceptUserID int) bool {
	for uid, c := range g.profiles {
		if uid != exceptUserID && strings.EqualFold(c.Profile.Email, email) {
			return true
		}
	}
	return false
}

func (g *MemoryGateway) joinUser(u HardwareUser) UserWithProfile {
	out := UserWithProfile{HardwareUser: u}
	if c, ok := g.profiles[u.ID]; ok {
		p := c.Profile
		out.Profile = &p
	}
	return out
}

func (g *MemoryGateway) joinLog(l AccessLogEntry) AccessLogView {
	view := AccessLogView{AccessLogEntry: l}
	if l.UserID == nil {
		return view
	}
	if c, ok := g.profiles[*l.UserID]; ok {
		name, email := c.Profile.Name, c.Profile.Email
		view.Name = &name
		view.Email = &email
		view.Mobile = c.Profile.Mobile
	}
	return view
}

func (g *MemoryGateway) newestFirst(keep func(AccessLogEntry) bool) []AccessLogView {
	out := make([]AccessLogView, 0, len(g.logs))
	for i := len(g.logs) - 1; i >= 0; i-- {
		if keep(g.logs[i]) {
			out = append(out, g.joinLog(g.logs[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
