package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const profileColumns = `p.id, p.user_id, p.name, p.email, p.mobile, p.role, p.created_at`

const logViewSelect = `
        SELECT l.id, l.user_id, l.result, l.note, l.created_at, p.name, p.email, p.mobile
        FROM access_logs l
        LEFT JOIN user_profiles p ON p.user_id = l.user_id`

const userViewSelect = `
        SELECT u.id, u.finger_id, u.created_at,
               p.id, p.user_id, p.name, p.email, p.mobile, p.role, p.created_at
        FROM users u
        LEFT JOIN user_profiles p ON p.user_id = u.id`

// PostgresGateway implements Gateway using PostgreSQL.
type PostgresGateway struct {
	db *pgxpool.Pool
}

// NewPostgresGateway builds a Postgres-backed gateway.
func NewPostgresGateway(db *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{db: db}
}

// GetHardwareUser fetches a device identity by id.
func (g *PostgresGateway) GetHardwareUser(ctx context.Context, id int) (HardwareUser, error) {
	var u HardwareUser
	err := g.db.QueryRow(ctx, `SELECT id, finger_id, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FingerID, &u.CreatedAt)
	if err != nil {
		return HardwareUser{}, translate(err, fmt.Sprintf("hardware user %d", id))
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// CreateHardwareUser inserts a device identity.
func (g *PostgresGateway) CreateHardwareUser(ctx context.Context, in NewHardwareUser) (HardwareUser, error) {
	u := HardwareUser{ID: in.ID, FingerID: in.FingerID}
	err := g.db.QueryRow(ctx, `INSERT INTO users (id, finger_id, password_hash)
        VALUES ($1, $2, $3) RETURNING created_at`, in.ID, in.FingerID, string(in.CredentialHash)).Scan(&u.CreatedAt)
	if err != nil {
		return HardwareUser{}, translate(err, fmt.Sprintf("hardware user %d", in.ID))
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// DeleteHardwareUser deletes the user; the schema cascades to profile and logs.
func (g *PostgresGateway) DeleteHardwareUser(ctx context.Context, id int) error {
	cmd, err := g.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("hardware user %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetProfileByUserID fetches the profile bound to a hardware user.
func (g *PostgresGateway) GetProfileByUserID(ctx context.Context, userID int) (Profile, error) {
	c, err := g.GetCredentialsByUserID(ctx, userID)
	return c.Profile, err
}

// GetProfileByEmail fetches a profile by its (case-insensitive) email.
func (g *PostgresGateway) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	c, err := g.GetCredentialsByEmail(ctx, email)
	return c.Profile, err
}

// GetCredentialsByEmail returns the profile and its password hash.
func (g *PostgresGateway) GetCredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	row := g.db.QueryRow(ctx, `SELECT `+profileColumns+`, p.password_hash
        FROM user_profiles p WHERE LOWER(p.email) = LOWER($1)`, email)
	c, err := scanCredentials(row)
	if err != nil {
		return Credentials{}, translate(err, fmt.Sprintf("profile %q", email))
	}
	return c, nil
}

// GetCredentialsByUserID returns the profile and its password hash.
func (g *PostgresGateway) GetCredentialsByUserID(ctx context.Context, userID int) (Credentials, error) {
	row := g.db.QueryRow(ctx, `SELECT `+profileColumns+`, p.password_hash
        FROM user_profiles p WHERE p.user_id = $1`, userID)
	c, err := scanCredentials(row)
	if err != nil {
		return Credentials{}, translate(err, fmt.Sprintf("profile for user %d", userID))
	}
	return c, nil
}

// CreateProfile inserts a profile for an existing hardware user.
func (g *PostgresGateway) CreateProfile(ctx context.Context, in NewProfile) (Profile, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	p := Profile{UserID: in.UserID, Name: in.Name, Email: in.Email, Mobile: in.Mobile, Role: role}
	err := g.db.QueryRow(ctx, `INSERT INTO user_profiles (user_id, name, email, mobile, password_hash, role)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		in.UserID, in.Name, in.Email, in.Mobile, string(in.PasswordHash), string(role)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Profile{}, translate(err, fmt.Sprintf("profile for user %d", in.UserID))
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// UpdateProfile applies the non-nil fields of upd.
func (g *PostgresGateway) UpdateProfile(ctx context.Context, userID int, upd ProfileUpdate) (Profile, error) {
	var role *string
	if upd.Role != nil {
		r := string(*upd.Role)
		role = &r
	}
	row := g.db.QueryRow(ctx, `UPDATE user_profiles p SET
            name   = COALESCE($2, p.name),
            email  = COALESCE($3, p.email),
            mobile = CASE WHEN $4::boolean THEN NULL ELSE COALESCE($5, p.mobile) END,
            role   = COALESCE($6, p.role)
        WHERE p.user_id = $1
        RETURNING `+profileColumns+`, p.password_hash`,
		userID, upd.Name, upd.Email, upd.ClearMobile, upd.Mobile, role)
	c, err := scanCredentials(row)
	if err != nil {
		return Profile{}, translate(err, fmt.Sprintf("profile for user %d", userID))
	}
	return c.Profile, nil
}

// GetUserWithProfile returns the user joined with its optional profile.
func (g *PostgresGateway) GetUserWithProfile(ctx context.Context, id int) (UserWithProfile, error) {
	rows, err := g.db.Query(ctx, userViewSelect+` WHERE u.id = $1`, id)
	if err != nil {
		return UserWithProfile{}, err
	}
	users, err := collectUsers(rows)
	if err != nil {
		return UserWithProfile{}, err
	}
	if len(users) == 0 {
		return UserWithProfile{}, fmt.Errorf("hardware user %d: %w", id, ErrNotFound)
	}
	return users[0], nil
}

// ListUsersWithProfiles returns every hardware user ordered by id.
func (g *PostgresGateway) ListUsersWithProfiles(ctx context.Context) ([]UserWithProfile, error) {
	rows, err := g.db.Query(ctx, userViewSelect+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// CreateAccessLog appends an entry; the server assigns created_at.
func (g *PostgresGateway) CreateAccessLog(ctx context.Context, in NewAccessLog) (AccessLogEntry, error) {
	uid := in.UserID
	e := AccessLogEntry{UserID: &uid, Outcome: in.Outcome, Note: in.Note}
	err := g.db.QueryRow(ctx, `INSERT INTO access_logs (user_id, result, note)
        VALUES ($1, $2, NULLIF($3, '')) RETURNING id, created_at`,
		in.UserID, string(in.Outcome), in.Note).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return AccessLogEntry{}, translate(err, fmt.Sprintf("access log for user %d", in.UserID))
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

// GetAccessLog returns one entry enriched with profile display fields.
func (g *PostgresGateway) GetAccessLog(ctx context.Context, id int64) (AccessLogView, error) {
	rows, err := g.db.Query(ctx, logViewSelect+` WHERE l.id = $1`, id)
	if err != nil {
		return AccessLogView{}, err
	}
	logs, err := collectLogs(rows)
	if err != nil {
		return AccessLogView{}, err
	}
	if len(logs) == 0 {
		return AccessLogView{}, fmt.Errorf("access log %d: %w", id, ErrNotFound)
	}
	return logs[0], nil
}

// RecentAccessLogs returns the newest entries first.
func (g *PostgresGateway) RecentAccessLogs(ctx context.Context, limit int) ([]AccessLogView, error) {
	rows, err := g.db.Query(ctx, logViewSelect+` ORDER BY l.created_at DESC, l.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

// UserAccessLogs returns every entry of one user, newest first.
func (g *PostgresGateway) UserAccessLogs(ctx context.Context, userID int) ([]AccessLogView, error) {
	rows, err := g.db.Query(ctx, logViewSelect+` WHERE l.user_id = $1 ORDER BY l.created_at DESC, l.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

// SystemStats computes user and log counts plus outcomes since local midnight.
func (g *PostgresGateway) SystemStats(ctx context.Context) (SystemStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM users),
            COUNT(*),
            COUNT(*) FILTER (WHERE result = 'GRANTED' AND created_at >= $1),
            COUNT(*) FILTER (WHERE result = 'DENIED' AND created_at >= $1)
        FROM access_logs`
	since := StartOfDay(time.Now(), time.Local)
	var s SystemStats
	if err := g.db.QueryRow(ctx, query, since).Scan(&s.TotalUsers, &s.TotalAccessLogs, &s.AccessGrantedToday, &s.AccessDeniedToday); err != nil {
		return SystemStats{}, err
	}
	return s, nil
}

func scanCredentials(row pgx.Row) (Credentials, error) {
	var (
		c    Credentials
		role string
		hash string
	)
	p := &c.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Mobile, &role, &p.CreatedAt, &hash); err != nil {
		return Credentials{}, err
	}
	p.Role = Role(role)
	p.CreatedAt = p.CreatedAt.UTC()
	c.PasswordHash = []byte(hash)
	return c, nil
}

func collectUsers(rows pgx.Rows) ([]UserWithProfile, error) {
	defer rows.Close()
	var out []UserWithProfile
	for rows.Next() {
		var (
			u         UserWithProfile
			profileID *int
			userID    *int
			name      *string
			email     *string
			mobile    *string
			role      *string
			createdAt *time.Time
		)
		if err := rows.Scan(&u.ID, &u.FingerID, &u.CreatedAt,
			&profileID, &userID, &name, &email, &mobile, &role, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		if profileID != nil {
			u.Profile = &Profile{
				ID:        *profileID,
				UserID:    deref(userID),
				Name:      deref(name),
				Email:     deref(email),
				Mobile:    mobile,
				Role:      Role(deref(role)),
				CreatedAt: deref(createdAt).UTC(),
			}
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []UserWithProfile{}
	}
	return out, nil
}

func collectLogs(rows pgx.Rows) ([]AccessLogView, error) {
	defer rows.Close()
	out := []AccessLogView{}
	for rows.Next() {
		var (
			v       AccessLogView
			outcome string
			note    *string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &outcome, &note, &v.CreatedAt, &v.Name, &v.Email, &v.Mobile); err != nil {
			return nil, err
		}
		v.Outcome = Outcome(outcome)
		v.Note = deref(note)
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func translate(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return err
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
