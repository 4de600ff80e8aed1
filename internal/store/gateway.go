package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique key is already taken.
	ErrConflict = errors.New("conflict")
)

// Gateway is the durable store of hardware users, profiles and access logs.
// Store-level failures are returned to the caller unchanged; ErrNotFound and
// ErrConflict are wrapped so callers can match them with errors.Is.
type Gateway interface {
	GetHardwareUser(ctx context.Context, id int) (HardwareUser, error)
	CreateHardwareUser(ctx context.Context, user NewHardwareUser) (HardwareUser, error)
	// DeleteHardwareUser removes the user together with its profile and logs.
	DeleteHardwareUser(ctx context.Context, id int) error

	GetProfileByUserID(ctx context.Context, userID int) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	GetCredentialsByEmail(ctx context.Context, email string) (Credentials, error)
	GetCredentialsByUserID(ctx context.Context, userID int) (Credentials, error)
	CreateProfile(ctx context.Context, profile NewProfile) (Profile, error)
	UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (Profile, error)

	GetUserWithProfile(ctx context.Context, id int) (UserWithProfile, error)
	ListUsersWithProfiles(ctx context.Context) ([]UserWithProfile, error)

	CreateAccessLog(ctx context.Context, log NewAccessLog) (AccessLogEntry, error)
	GetAccessLog(ctx context.Context, id int64) (AccessLogView, error)
	RecentAccessLogs(ctx context.Context, limit int) ([]AccessLogView, error)
	UserAccessLogs(ctx context.Context, userID int) ([]AccessLogView, error)

	// SystemStats fills every field except HardwareConnected.
	SystemStats(ctx context.Context) (SystemStats, error)
}
