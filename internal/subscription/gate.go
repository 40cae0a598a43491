package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/storage"
	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// CheckResult is the gate's answer for one user.
type CheckResult struct {
	Active     bool
	Message    string
	PaymentURL string
}

// Gate decides whether a user currently has billing access. With the
// feature flag off it allows everyone without touching storage or the
// provider. Errors during a check fail OPEN: a billing outage must not take
// the service down, so enforcement is traded for availability. That policy
// is deliberate; do not tighten it to fail-closed without revisiting the
// deployment assumptions.
type Gate struct {
	enabled   bool
	store     storage.Store
	provider  BillingProvider
	publisher events.Publisher
	now       func() time.Time
}

// NewGate wires the gate. provider may be nil when billing is not
// configured; with the flag on that denies everyone with an explanatory
// message; a missing provider is misconfiguration, not an outage.
func NewGate(enabled bool, store storage.Store, provider BillingProvider, publisher events.Publisher) *Gate {
	return &Gate{
		enabled:   enabled,
		store:     store,
		provider:  provider,
		publisher: publisher,
		now:       time.Now,
	}
}

// Enabled reports whether gating is turned on at all.
func (g *Gate) Enabled() bool { return g.enabled }

// Check resolves the user's access, preferring the cached record and
// falling back to a live provider query that refreshes the cache.
func (g *Gate) Check(ctx context.Context, userID string) CheckResult {
	if !g.enabled {
		return CheckResult{Active: true}
	}

	if g.provider == nil {
		return CheckResult{
			Active:  false,
			Message: "Subscription service not configured",
		}
	}

	if cached := g.cachedRecord(ctx, userID); cached.ActiveAt(g.now()) {
		return CheckResult{Active: true}
	}

	record, err := g.provider.SubscriptionStatus(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoBillingRecord) {
		logging.Error("Subscription", err, "live status check failed for %s, failing open", userID)
		return CheckResult{Active: true}
	}

	if record != nil {
		g.storeRecord(ctx, userID, record)
		if record.Status == StatusTrial || record.Status == StatusActive {
			return CheckResult{Active: true}
		}
	}

	return g.denied(ctx, userID)
}

// denied builds the denial result, attaching a payment link when one can
// be created.
func (g *Gate) denied(ctx context.Context, userID string) CheckResult {
	paymentURL, err := g.provider.CreatePaymentLink(ctx, userID, "")
	if err != nil {
		logging.Error("Subscription", err, "creating payment link for %s", userID)
		return CheckResult{
			Active:  false,
			Message: "Your subscription is inactive. Please contact support to reactivate your account.",
		}
	}

	return CheckResult{
		Active:     false,
		Message:    "Your subscription is inactive. Please subscribe to continue using the Todoist MCP server.",
		PaymentURL: paymentURL,
	}
}

// StatusFor returns the cached-or-live record for status endpoints. Unlike
// Check it propagates provider errors to the caller.
func (g *Gate) StatusFor(ctx context.Context, userID string) (*Record, error) {
	if g.provider == nil {
		return nil, errors.New("subscription service not configured")
	}
	if record := g.cachedRecord(ctx, userID); record != nil {
		return record, nil
	}

	record, err := g.provider.SubscriptionStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	g.storeRecord(ctx, userID, record)
	return record, nil
}

// PaymentLink creates (or reuses) the hosted checkout URL for a user.
func (g *Gate) PaymentLink(ctx context.Context, userID, email string) (string, error) {
	if g.provider == nil {
		return "", errors.New("subscription service not configured")
	}
	return g.provider.CreatePaymentLink(ctx, userID, email)
}

// ApplyWebhookRecord refreshes the cache from a billing-provider event and
// announces the change.
func (g *Gate) ApplyWebhookRecord(ctx context.Context, userID string, record *Record) error {
	if err := g.storeRecordErr(ctx, userID, record); err != nil {
		return err
	}
	g.publisher.Publish(ctx, events.SubscriptionUpdated, map[string]interface{}{
		"user_id": userID,
		"status":  record.Status,
	})
	return nil
}

func (g *Gate) cachedRecord(ctx context.Context, userID string) *Record {
	data, err := g.store.GetSubscription(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Error("Subscription", err, "reading cached record for %s", userID)
		}
		return nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		logging.Error("Subscription", err, "corrupt cached record for %s", userID)
		return nil
	}
	return &record
}

func (g *Gate) storeRecord(ctx context.Context, userID string, record *Record) {
	if err := g.storeRecordErr(ctx, userID, record); err != nil {
		logging.Error("Subscription", err, "caching record for %s", userID)
	}
}

func (g *Gate) storeRecordErr(ctx context.Context, userID string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return g.store.SetSubscription(ctx, userID, data)
}
