package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/authintegrate/authintegrate/internal/store"
)

var (
	// ErrValidation marks request fields that fail the registration rules.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for any failed password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrHardwareUserMissing means the user id was never registered on the device.
	ErrHardwareUserMissing = errors.New("user ID not registered on the device")
	// ErrProfileExists means the hardware user already has a profile.
	ErrProfileExists = errors.New("profile already exists for this user ID")
	// ErrEmailTaken means another profile uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

// Service manages profiles and credential checks.
type Service struct {
	repo    Repository
	isAdmin func(email string) bool
}

// NewService creates an identity service. isAdmin decides which emails are
// given the admin role at registration; it may be nil.
func NewService(repo Repository, isAdmin func(email string) bool) *Service {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Service{repo: repo, isAdmin: isAdmin}
}

// Register binds a new profile to an existing hardware user.
func (s *Service) Register(ctx context.Context, reg Registration) (store.Profile, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validateName(reg.Name); err != nil {
		return store.Profile{}, err
	}
	if err := validateEmail(reg.Email); err != nil {
		return store.Profile{}, err
	}
	if !pinPattern.MatchString(reg.Password) {
		return store.Profile{}, fmt.Errorf("%w: password must be exactly 6 digits", ErrValidation)
	}
	if reg.UserID < 0 {
		return store.Profile{}, fmt.Errorf("%w: userId must not be negative", ErrValidation)
	}
	mobile := normalizeMobile(reg.Mobile)

	if _, err := s.repo.GetHardwareUser(ctx, reg.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Profile{}, ErrHardwareUserMissing
		}
		return store.Profile{}, err
	}
	if _, err := s.repo.GetProfileByUserID(ctx, reg.UserID); err == nil {
		return store.Profile{}, ErrProfileExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Profile{}, err
	}
	if _, err := s.repo.GetProfileByEmail(ctx, reg.Email); err == nil {
		return store.Profile{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), hashCost)
	if err != nil {
		return store.Profile{}, err
	}
	role := store.RoleUser
	if s.isAdmin(reg.Email) {
		role = store.RoleAdmin
	}

	profile, err := s.repo.CreateProfile(ctx, store.NewProfile{
		UserID:       reg.UserID,
		Name:         reg.Name,
		Email:        reg.Email,
		Mobile:       mobile,
		PasswordHash: hash,
		Role:         role,
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		return store.Profile{}, ErrProfileExists
	case errors.Is(err, store.ErrNotFound):
		return store.Profile{}, ErrHardwareUserMissing
	case err != nil:
		return store.Profile{}, err
	}
	return profile, nil
}

// Authenticate checks an email/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (store.UserWithProfile, error) {
	stored, err := s.repo.GetCredentialsByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, store.ErrNotFound) {
		return store.UserWithProfile{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.UserWithProfile{}, err
	}
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte(creds.Password)); err != nil {
		return store.UserWithProfile{}, ErrInvalidCredentials
	}
	return s.Account(ctx, stored.Profile.UserID)
}

// VerifyHardware checks the password factor for a device-side login.
func (s *Service) VerifyHardware(ctx context.Context, userID int, password string) error {
	stored, err := s.repo.GetCredentialsByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Account returns the hardware user joined with its profile.
func (s *Service) Account(ctx context.Context, userID int) (store.UserWithProfile, error) {
	u, err := s.repo.GetUserWithProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.UserWithProfile{}, ErrUserNotFound
	}
	return u, err
}

// IsAdmin reports whether userID has an admin profile.
func (s *Service) IsAdmin(ctx context.Context, userID int) (bool, error) {
	p, err := s.repo.GetProfileByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Role == store.RoleAdmin, nil
}

// ListUsers returns every hardware user with its optional profile.
func (s *Service) ListUsers(ctx context.Context) ([]store.UserWithProfile, error) {
	return s.repo.ListUsersWithProfiles(ctx)
}

// UpdateUser applies an administrator edit.
func (s *Service) UpdateUser(ctx context.Context, userID int, upd Update) (store.Profile, error) {
	var patch store.ProfileUpdate
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return store.Profile{}, err
		}
		patch.Name = &name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if err := validateEmail(email); err != nil {
			return store.Profile{}, err
		}
		patch.Email = &email
	}
	if upd.Mobile != nil {
		if m := normalizeMobile(upd.Mobile); m != nil {
			patch.Mobile = m
		} else {
			patch.ClearMobile = true
		}
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return store.Profile{}, fmt.Errorf("%w: role must be admin or user", ErrValidation)
		}
		patch.Role = upd.Role
	}

	p, err := s.repo.UpdateProfile(ctx, userID, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return store.Profile{}, ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return store.Profile{}, ErrEmailTaken
	}
	return p, err
}

// DeleteUser removes the hardware user, its profile and its access logs.
func (s *Service) DeleteUser(ctx context.Context, userID int) error {
	err := s.repo.DeleteHardwareUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters", ErrValidation)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

func normalizeMobile(m *string) *string {
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(*m)
	if v == "" {
		return nil
	}
	return &v
}
