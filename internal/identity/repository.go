package identity

import (
	"context"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Repository is the part of store.Gateway identity works against.
type Repository interface {
	GetHardwareUser(ctx context.Context, id int) (store.HardwareUser, error)
	DeleteHardwareUser(ctx context.Context, id int) error
	GetProfileByUserID(ctx context.Context, userID int) (store.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (store.Profile, error)
	GetCredentialsByEmail(ctx context.Context, email string) (store.Credentials, error)
	GetCredentialsByUserID(ctx context.Context, userID int) (store.Credentials, error)
	CreateProfile(ctx context.Context, profile store.NewProfile) (store.Profile, error)
	UpdateProfile(ctx context.Context, userID int, update store.ProfileUpdate) (store.Profile, error)
	GetUserWithProfile(ctx context.Context, id int) (store.UserWithProfile, error)
	ListUsersWithProfiles(ctx context.Context) ([]store.UserWithProfile, error)
}
