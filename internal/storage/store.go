package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StateTTL is the maximum age of an OAuth state token at validation time.
const StateTTL = 5 * time.Minute

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// StorageError wraps a backend failure so callers can tell infrastructure
// problems apart from missing data or bad user input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the credential store shared by the OAuth flow, the session
// binder, and the subscription gate. A deployment picks exactly one backend
// (Postgres in production, SQLite locally); both are safe for concurrent use
// from multiple sessions.
type Store interface {
	// GetToken returns the decrypted Todoist token for a user, or ErrNotFound.
	GetToken(ctx context.Context, userID string) (string, error)
	// SetToken upserts the token for a user.
	SetToken(ctx context.Context, userID, token string) error
	// DeleteToken removes the token for a user. Deleting an absent token is
	// not an error.
	DeleteToken(ctx context.Context, userID string) error

	// GetUserIDByTodoistID resolves the local user id previously linked to a
	// Todoist account id, or ErrNotFound.
	GetUserIDByTodoistID(ctx context.Context, todoistUserID string) (string, error)
	// LinkTodoistUser records the todoistUserID -> userID mapping. At most one
	// local user per Todoist account: re-linking overwrites.
	LinkTodoistUser(ctx context.Context, todoistUserID, userID string) error
	// UnlinkTodoistUser drops the mapping for a Todoist account id.
	UnlinkTodoistUser(ctx context.Context, todoistUserID string) error

	// StoreOAuthState persists a fresh anti-forgery state token.
	StoreOAuthState(ctx context.Context, state string) error
	// ValidateAndConsumeState deletes the state record first and only then
	// reports whether it existed and was at most StateTTL old. The delete is
	// unconditional so a state can never be redeemed twice, even when the
	// validation itself fails. States that are never redeemed are left behind;
	// there is no background sweep because the age check makes them inert.
	ValidateAndConsumeState(ctx context.Context, state string) (bool, error)

	// GetSubscription returns the cached subscription record payload for a
	// user, or ErrNotFound.
	GetSubscription(ctx context.Context, userID string) ([]byte, error)
	// SetSubscription upserts the cached subscription record payload.
	SetSubscription(ctx context.Context, userID string, data []byte) error

	Ping(ctx context.Context) error
	Close() error
}

// stateFresh reports whether a state created at the given unix-millisecond
// timestamp is still within StateTTL of now.
func stateFresh(createdAtMillis int64, now time.Time) bool {
	created := time.UnixMilli(createdAtMillis)
	return now.Sub(created) <= StateTTL
}
