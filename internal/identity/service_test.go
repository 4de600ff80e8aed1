package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/authintegrate/authintegrate/internal/store"
)

func init() {
	hashCost = bcrypt.MinCost
}

func newTestService(t *testing.T, hardwareIDs ...int) (*Service, *store.MemoryGateway) {
	t.Helper()
	gw := store.NewMemoryGateway()
	for _, id := range hardwareIDs {
		if _, err := gw.CreateHardwareUser(context.Background(), store.NewHardwareUser{ID: id, FingerID: 100 + id}); err != nil {
			t.Fatalf("seed hardware user: %v", err)
		}
	}
	return NewService(gw, func(email string) bool { return email == "root@example.com" }), gw
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()

	profile, err := svc.Register(ctx, Registration{UserID: 1, Name: " Ada ", Email: "ada@example.com", Password: "123456"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.Role != store.RoleUser || profile.Name != "Ada" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	account, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "123456"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if account.ID != 1 || account.Profile == nil || account.Profile.Email != "ada@example.com" {
		t.Fatalf("unexpected account: %+v", account)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "654321"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "123456"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestRegisterRules(t *testing.T) {
	svc, _ := newTestService(t, 1, 2)
	ctx := context.Background()

	cases := []struct {
		name string
		reg  Registration
		want error
	}{
		{"short name", Registration{UserID: 1, Name: "A", Email: "a@example.com", Password: "123456"}, ErrValidation},
		{"bad email", Registration{UserID: 1, Name: "Ada", Email: "not-an-email", Password: "123456"}, ErrValidation},
		{"letters in pin", Registration{UserID: 1, Name: "Ada", Email: "a@example.com", Password: "12a456"}, ErrValidation},
		{"long pin", Registration{UserID: 1, Name: "Ada", Email: "a@example.com", Password: "1234567"}, ErrValidation},
		{"unknown hardware user", Registration{UserID: 9, Name: "Ada", Email: "a@example.com", Password: "123456"}, ErrHardwareUserMissing},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.reg); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if _, err := svc.Register(ctx, Registration{UserID: 1, Name: "Ada", Email: "a@example.com", Password: "123456"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Registration{UserID: 1, Name: "Ada", Email: "b@example.com", Password: "123456"}); !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if _, err := svc.Register(ctx, Registration{UserID: 2, Name: "Bob", Email: "a@example.com", Password: "123456"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterBootstrapsAdmin(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()

	profile, err := svc.Register(ctx, Registration{UserID: 1, Name: "Root", Email: "root@example.com", Password: "000000"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.Role != store.RoleAdmin {
		t.Fatalf("expected admin role, got %s", profile.Role)
	}
	isAdmin, err := svc.IsAdmin(ctx, 1)
	if err != nil || !isAdmin {
		t.Fatalf("expected IsAdmin true, got %v %v", isAdmin, err)
	}
}

func TestVerifyHardware(t *testing.T) {
	svc, _ := newTestService(t, 1, 2)
	ctx := context.Background()
	if _, err := svc.Register(ctx, Registration{UserID: 1, Name: "Ada", Email: "a@example.com", Password: "123456"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.VerifyHardware(ctx, 1, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyHardware(ctx, 1, "000000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := svc.VerifyHardware(ctx, 2, "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected no-profile rejection, got %v", err)
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	svc, gw := newTestService(t, 1)
	ctx := context.Background()
	mobile := "0700000000"
	if _, err := svc.Register(ctx, Registration{UserID: 1, Name: "Ada", Email: "a@example.com", Mobile: &mobile, Password: "123456"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	admin := store.RoleAdmin
	empty := ""
	p, err := svc.UpdateUser(ctx, 1, Update{Role: &admin, Mobile: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Role != store.RoleAdmin || p.Mobile != nil {
		t.Fatalf("unexpected profile: %+v", p)
	}

	bogus := store.Role("root")
	if _, err := svc.UpdateUser(ctx, 1, Update{Role: &bogus}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, 7, Update{Role: &admin}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := svc.DeleteUser(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := gw.GetProfileByUserID(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected profile removed, got %v", err)
	}
	if err := svc.DeleteUser(ctx, 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
