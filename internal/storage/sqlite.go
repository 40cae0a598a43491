package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskbridge/todoist-mcp/internal/crypto"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// SQLiteStore is the local/dev credential store. It keeps the same contract
// as PostgresStore but lives in a single file; it is not suitable for
// multi-instance deployments. encryptionKey may be empty for local use, in
// which case tokens are stored in the clear.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey string
	now           func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" is
// accepted for tests.
func NewSQLiteStore(path, encryptionKey string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY under concurrent writers and
	// keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	logging.Info("Storage", "SQLite store opened at %s", path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_tokens (
		user_id TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todoist_user_links (
		todoist_user_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_states (
		state TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT PRIMARY KEY,
		subscription_data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) encode(token string) (string, error) {
	if s.encryptionKey == "" {
		return token, nil
	}
	return crypto.Encrypt(token, s.encryptionKey)
}

func (s *SQLiteStore) decode(stored string) (string, error) {
	if s.encryptionKey == "" {
		return stored, nil
	}
	return crypto.Decrypt(stored, s.encryptionKey)
}

func (s *SQLiteStore) GetToken(ctx context.Context, userID string) (string, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM user_tokens WHERE user_id = ?`, userID,
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: "get token", Err: err}
	}

	token, err := s.decode(stored)
	if err != nil {
		return "", &StorageError{Op: "decrypt token", Err: err}
	}
	return token, nil
}

func (s *SQLiteStore) SetToken(ctx context.Context, userID, token string) error {
	stored, err := s.encode(token)
	if err != nil {
		return &StorageError{Op: "encrypt token", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_tokens (user_id, token, updated_at) VALUES (?, ?, ?)`,
		userID, stored, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "set token", Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return &StorageError{Op: "delete token", Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetUserIDByTodoistID(ctx context.Context, todoistUserID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM todoist_user_links WHERE todoist_user_id = ?`, todoistUserID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: "get user link", Err: err}
	}
	return userID, nil
}

func (s *SQLiteStore) LinkTodoistUser(ctx context.Context, todoistUserID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO todoist_user_links (todoist_user_id, user_id) VALUES (?, ?)`,
		todoistUserID, userID)
	if err != nil {
		return &StorageError{Op: "link user", Err: err}
	}
	return nil
}

func (s *SQLiteStore) UnlinkTodoistUser(ctx context.Context, todoistUserID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM todoist_user_links WHERE todoist_user_id = ?`, todoistUserID)
	if err != nil {
		return &StorageError{Op: "unlink user", Err: err}
	}
	return nil
}

func (s *SQLiteStore) StoreOAuthState(ctx context.Context, state string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_states (state, created_at) VALUES (?, ?)`,
		state, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "store oauth state", Err: err}
	}
	return nil
}

func (s *SQLiteStore) ValidateAndConsumeState(ctx context.Context, state string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, &StorageError{Op: "consume oauth state", Err: err}
	}
	defer tx.Rollback()

	var createdAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM oauth_states WHERE state = ?`, state,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return false, tx.Commit()
	}
	if err != nil {
		return false, &StorageError{Op: "consume oauth state", Err: err}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = ?`, state)
	if err != nil {
		return false, &StorageError{Op: "consume oauth state", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return false, &StorageError{Op: "consume oauth state", Err: err}
	}

	// The delete is the claim: a concurrent consumer that lost the race
	// deleted zero rows and must not succeed.
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	return stateFresh(createdAt, s.now()), nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT subscription_data FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get subscription", Err: err}
	}
	return data, nil
}

func (s *SQLiteStore) SetSubscription(ctx context.Context, userID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (user_id, subscription_data, updated_at) VALUES (?, ?, ?)`,
		userID, data, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "set subscription", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
