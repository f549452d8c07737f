// Package sqlite implements the repositories on a local SQLite file through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS carts (
	visitor_id TEXT PRIMARY KEY,
	items      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS profiles (
	visitor_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_snapshots (
	session_id TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store is a Registry backed by one SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ repositories.Registry           = (*Store)(nil)
	_ repositories.CartRepository     = (*Store)(nil)
	_ repositories.ProfileRepository  = (*Store)(nil)
	_ repositories.SnapshotRepository = (*Store)(nil)
)

// Open creates the database file and schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Carts() repositories.CartRepository         { return s }
func (s *Store) Profiles() repositories.ProfileRepository   { return s }
func (s *Store) Snapshots() repositories.SnapshotRepository { return s }

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return repositories.NewUnavailable("sqlite.ping", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) GetCart(ctx context.Context, visitorID string) (domain.Cart, error) {
	var items, updated string
	err := s.db.QueryRowContext(ctx, `SELECT items, updated_at FROM carts WHERE visitor_id = ?`, visitorID).Scan(&items, &updated)
	if err != nil {
		return domain.Cart{}, wrap("carts.get", visitorID, err)
	}
	cart := domain.Cart{VisitorID: visitorID, UpdatedAt: parseTime(updated)}
	if err := json.Unmarshal([]byte(items), &cart.Items); err != nil {
		return domain.Cart{}, fmt.Errorf("carts.get: decode items: %w", err)
	}
	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	id := strings.TrimSpace(cart.VisitorID)
	if id == "" {
		return domain.Cart{}, errors.New("carts.save: visitor id is required")
	}
	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("carts.save: encode items: %w", err)
	}
	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (visitor_id, items, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(visitor_id) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		id, string(encoded), formatTime(now))
	if err != nil {
		return domain.Cart{}, repositories.NewUnavailable("carts.save", err)
	}
	saved := cart.Clone()
	saved.VisitorID = id
	saved.UpdatedAt = now
	return saved, nil
}

func (s *Store) GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error) {
	var data, updated string
	err := s.db.QueryRowContext(ctx, `SELECT data, updated_at FROM profiles WHERE visitor_id = ?`, visitorID).Scan(&data, &updated)
	if err != nil {
		return domain.UserProfile{}, wrap("profiles.get", visitorID, err)
	}
	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return domain.UserProfile{}, fmt.Errorf("profiles.get: decode: %w", err)
	}
	profile.UpdatedAt = parseTime(updated)
	return profile, nil
}

func (s *Store) SaveProfile(ctx context.Context, visitorID string, profile domain.UserProfile) (domain.UserProfile, error) {
	id := strings.TrimSpace(visitorID)
	if id == "" {
		return domain.UserProfile{}, errors.New("profiles.save: visitor id is required")
	}
	encoded, err := json.Marshal(profile)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("profiles.save: encode: %w", err)
	}
	profile.UpdatedAt = s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (visitor_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(visitor_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		id, string(encoded), formatTime(profile.UpdatedAt))
	if err != nil {
		return domain.UserProfile{}, repositories.NewUnavailable("profiles.save", err)
	}
	return profile, nil
}

func (s *Store) GetSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM order_snapshots WHERE session_id = ?`, sessionID).Scan(&payload)
	if err != nil {
		return nil, wrap("snapshots.get", sessionID, err)
	}
	return payload, nil
}

func (s *Store) PutSnapshot(ctx context.Context, sessionID string, raw []byte) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return errors.New("snapshots.put: session id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_snapshots (session_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id, raw, formatTime(s.now().UTC()))
	if err != nil {
		return repositories.NewUnavailable("snapshots.put", err)
	}
	return nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM order_snapshots WHERE session_id = ?`, sessionID); err != nil {
		return repositories.NewUnavailable("snapshots.delete", err)
	}
	return nil
}

func wrap(op, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.NewNotFound(op, key)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return repositories.NewUnavailable(op, err)
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
