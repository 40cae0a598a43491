package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/taskbridge/todoist-mcp/internal/crypto"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// PostgresStore is the production credential store. Tokens are encrypted at
// rest. When a Redis client is supplied, OAuth states live in Redis with an
// atomic GETDEL consume; otherwise they share the Postgres database.
type PostgresStore struct {
	db            *sql.DB
	redis         *redis.Client
	encryptionKey string
	now           func() time.Time
}

// NewPostgresStore opens the database, verifies connectivity, and creates
// the schema. redisURL may be empty.
func NewPostgresStore(connString, encryptionKey, redisURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &PostgresStore{
		db:            db,
		encryptionKey: encryptionKey,
		now:           time.Now,
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
		if err := s.redis.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		logging.Info("Storage", "OAuth states backed by Redis")
	}

	logging.Info("Storage", "connected to PostgreSQL")
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_tokens (
		user_id VARCHAR(255) PRIMARY KEY,
		token_encrypted TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS todoist_user_links (
		todoist_user_id VARCHAR(255) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_states (
		state VARCHAR(255) PRIMARY KEY,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		user_id VARCHAR(255) PRIMARY KEY,
		subscription_data TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) GetToken(ctx context.Context, userID string) (string, error) {
	var encrypted string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_encrypted FROM user_tokens WHERE user_id = $1`, userID,
	).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: "get token", Err: err}
	}

	token, err := crypto.Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", &StorageError{Op: "decrypt token", Err: err}
	}
	return token, nil
}

func (s *PostgresStore) SetToken(ctx context.Context, userID, token string) error {
	encrypted, err := crypto.Encrypt(token, s.encryptionKey)
	if err != nil {
		return &StorageError{Op: "encrypt token", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_tokens (user_id, token_encrypted, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET token_encrypted = EXCLUDED.token_encrypted, updated_at = NOW()
	`, userID, encrypted)
	if err != nil {
		return &StorageError{Op: "set token", Err: err}
	}
	return nil
}

func (s *PostgresStore) DeleteToken(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return &StorageError{Op: "delete token", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetUserIDByTodoistID(ctx context.Context, todoistUserID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM todoist_user_links WHERE todoist_user_id = $1`, todoistUserID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: "get user link", Err: err}
	}
	return userID, nil
}

func (s *PostgresStore) LinkTodoistUser(ctx context.Context, todoistUserID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todoist_user_links (todoist_user_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (todoist_user_id)
		DO UPDATE SET user_id = EXCLUDED.user_id
	`, todoistUserID, userID)
	if err != nil {
		return &StorageError{Op: "link user", Err: err}
	}
	return nil
}

func (s *PostgresStore) UnlinkTodoistUser(ctx context.Context, todoistUserID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM todoist_user_links WHERE todoist_user_id = $1`, todoistUserID)
	if err != nil {
		return &StorageError{Op: "unlink user", Err: err}
	}
	return nil
}

func (s *PostgresStore) StoreOAuthState(ctx context.Context, state string) error {
	if s.redis != nil {
		err := s.redis.Set(ctx, stateKey(state), s.now().UnixMilli(), StateTTL).Err()
		if err != nil {
			return &StorageError{Op: "store oauth state", Err: err}
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_states (state, created_at) VALUES ($1, $2)`,
		state, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "store oauth state", Err: err}
	}
	return nil
}

func (s *PostgresStore) ValidateAndConsumeState(ctx context.Context, state string) (bool, error) {
	if s.redis != nil {
		val, err := s.redis.GetDel(ctx, stateKey(state)).Int64()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, &StorageError{Op: "consume oauth state", Err: err}
		}
		return stateFresh(val, s.now()), nil
	}

	// The delete doubles as the atomic claim: with two concurrent callbacks
	// only one observes the pre-existing row.
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM oauth_states WHERE state = $1 RETURNING created_at`, state,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "consume oauth state", Err: err}
	}
	return stateFresh(createdAt, s.now()), nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT subscription_data FROM subscriptions WHERE user_id = $1`, userID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get subscription", Err: err}
	}
	return data, nil
}

func (s *PostgresStore) SetSubscription(ctx context.Context, userID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, subscription_data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET subscription_data = EXCLUDED.subscription_data, updated_at = NOW()
	`, userID, data)
	if err != nil {
		return &StorageError{Op: "set subscription", Err: err}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Ping(ctx).Err()
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return s.db.Close()
}

func stateKey(state string) string {
	return "oauth:state:" + state
}
