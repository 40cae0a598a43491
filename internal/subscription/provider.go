package subscription

import (
	"context"
	"errors"
)

// ErrNoBillingRecord means the billing provider has no customer or
// subscription for the user. It is a normal outcome, not a provider outage.
var ErrNoBillingRecord = errors.New("no billing record for user")

// BillingProvider is the external payments service consulted by the gate.
type BillingProvider interface {
	// SubscriptionStatus performs a live query by local user id and returns a
	// normalized record, or ErrNoBillingRecord.
	SubscriptionStatus(ctx context.Context, userID string) (*Record, error)

	// CreatePaymentLink resolves or creates the provider customer for the
	// user and returns a hosted checkout URL for a trial subscription.
	// Idempotent at the customer level.
	CreatePaymentLink(ctx context.Context, userID, email string) (string, error)
}
