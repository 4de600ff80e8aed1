package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/authintegrate/authintegrate/internal/dashboard/migrations"
	"github.com/authintegrate/authintegrate/internal/store"
)

// SQLitePersister stores the live sequence in a local SQLite file so the
// monitor shows recent pushes again after a restart.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache database at dsn and migrates it.
// Use ":memory:" for a throwaway cache.
func OpenSQLite(ctx context.Context, dsn string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a second connection to :memory: would see an empty database
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLitePersister{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate cache: %w", err)
	}
	return nil
}

// Load returns the persisted live sequence, newest first.
func (p *SQLitePersister) Load(ctx context.Context) ([]store.AccessLogView, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM live_logs ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("load live logs: %w", err)
	}
	defer rows.Close()

	var out []store.AccessLogView
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e store.AccessLogView
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode live log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save replaces the persisted sequence with live.
func (p *SQLitePersister) Save(ctx context.Context, live []store.AccessLogView) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM live_logs`); err != nil {
		return fmt.Errorf("clear live logs: %w", err)
	}
	for i, e := range live {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO live_logs (id, position, payload) VALUES (?, ?, ?)`,
			e.ID, i, string(payload),
		); err != nil {
			return fmt.Errorf("save live log %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Close releases the database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
