package hardware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/authintegrate/authintegrate/internal/events"
	"github.com/authintegrate/authintegrate/internal/store"
)

var (
	// ErrInvalid marks a malformed device event.
	ErrInvalid = errors.New("invalid hardware event")
	// ErrUserExists is returned for REG of an id that is already registered.
	ErrUserExists = errors.New("user ID already exists")
	// ErrUserNotFound is returned for LOGIN of an id that was never registered.
	ErrUserNotFound = errors.New("user ID not found in hardware database")
)

const (
	// DefaultDevicePIN is stored, hashed, when a REG carries no password.
	DefaultDevicePIN = "HARDWARE_DEFAULT_PIN"

	defaultRegisterNote = "New fingerprint registered via Wi-Fi."
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

// UserStore is the slice of the persistence gateway the adapter needs.
type UserStore interface {
	GetHardwareUser(ctx context.Context, id int) (store.HardwareUser, error)
	CreateHardwareUser(ctx context.Context, user store.NewHardwareUser) (store.HardwareUser, error)
}

// AccessPublisher receives accepted access events.
type AccessPublisher interface {
	PublishAccess(ctx context.Context, ev events.AccessEvent)
}

// Result describes an accepted event.
type Result struct {
	Message string
	Event   events.AccessEvent
}

// Adapter validates device events, enforces the user-existence rules and
// publishes accepted events.
type Adapter struct {
	users  UserStore
	bus    AccessPublisher
	status *Status
	logger *slog.Logger
}

// NewAdapter constructs an adapter. status may be nil.
func NewAdapter(users UserStore, bus AccessPublisher, status *Status, logger *slog.Logger) *Adapter {
	return &Adapter{users: users, bus: bus, status: status, logger: logger}
}

// Handle processes one event. Errors wrap ErrInvalid, ErrUserExists or
// ErrUserNotFound; anything else is a store failure.
func (a *Adapter) Handle(ctx context.Context, ev Event) (Result, error) {
	if err := ev.validate(); err != nil {
		return Result{}, err
	}
	userID := *ev.UserID

	_, err := a.users.GetHardwareUser(ctx, userID)
	exists := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("lookup hardware user %d: %w", userID, err)
	}

	var res Result
	switch ev.Command {
	case CommandRegister:
		if exists {
			return Result{}, fmt.Errorf("%w: %d", ErrUserExists, userID)
		}
		if err := a.register(ctx, userID, *ev.FingerID, ev.Password); err != nil {
			return Result{}, err
		}
		note := ev.Note
		if note == "" {
			note = defaultRegisterNote
		}
		res = Result{
			Message: "Registration successful",
			Event:   events.AccessEvent{UserID: userID, Outcome: store.OutcomeRegistered, Note: truncateNote(note)},
		}
	case CommandLogin:
		if !exists {
			a.logger.Warn("hardware login for unknown user", "user_id", userID)
			return Result{}, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		outcome := ev.loginOutcome()
		note := ev.Note
		if note == "" {
			note = fmt.Sprintf("Hardware check result: %s", outcome)
		}
		res = Result{
			Message: "Access logged successfully",
			Event:   events.AccessEvent{UserID: userID, Outcome: outcome, Note: truncateNote(note)},
		}
	}

	a.bus.PublishAccess(ctx, res.Event)
	if a.status != nil {
		a.status.Set(ctx, true)
	}
	return res, nil
}

func (a *Adapter) register(ctx context.Context, userID, fingerID int, password string) error {
	if password == "" {
		password = DefaultDevicePIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return fmt.Errorf("hash device credential: %w", err)
	}
	_, err = a.users.CreateHardwareUser(ctx, store.NewHardwareUser{ID: userID, FingerID: fingerID, CredentialHash: hash})
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrUserExists, err)
	}
	if err != nil {
		return fmt.Errorf("create hardware user %d: %w", userID, err)
	}
	a.logger.Info("hardware user registered", "user_id", userID, "finger_id", fingerID)
	return nil
}
