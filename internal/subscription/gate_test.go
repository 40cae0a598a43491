package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskbridge/todoist-mcp/internal/events"
	"github.com/taskbridge/todoist-mcp/internal/storage"
)

// memStore tracks subscription reads/writes so tests can assert which code
// paths touched storage. The credential methods are unused by the gate.
type memStore struct {
	records map[string][]byte
	gets    int
	sets    int
}

func newMemStore() *memStore { return &memStore{records: map[string][]byte{}} }

func (m *memStore) GetToken(ctx context.Context, userID string) (string, error) {
	return "", storage.ErrNotFound
}
func (m *memStore) SetToken(ctx context.Context, userID, token string) error { return nil }
func (m *memStore) DeleteToken(ctx context.Context, userID string) error     { return nil }
func (m *memStore) GetUserIDByTodoistID(ctx context.Context, todoistUserID string) (string, error) {
	return "", storage.ErrNotFound
}
func (m *memStore) LinkTodoistUser(ctx context.Context, todoistUserID, userID string) error {
	return nil
}
func (m *memStore) UnlinkTodoistUser(ctx context.Context, todoistUserID string) error { return nil }
func (m *memStore) StoreOAuthState(ctx context.Context, state string) error           { return nil }
func (m *memStore) ValidateAndConsumeState(ctx context.Context, state string) (bool, error) {
	return false, nil
}

func (m *memStore) GetSubscription(ctx context.Context, userID string) ([]byte, error) {
	m.gets++
	data, ok := m.records[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) SetSubscription(ctx context.Context, userID string, data []byte) error {
	m.sets++
	m.records[userID] = data
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }
func (m *memStore) Close() error                   { return nil }

type fakeProvider struct {
	record     *Record
	statusErr  error
	paymentURL string
	paymentErr error
	statusCall int
}

func (f *fakeProvider) SubscriptionStatus(ctx context.Context, userID string) (*Record, error) {
	f.statusCall++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.record, nil
}

func (f *fakeProvider) CreatePaymentLink(ctx context.Context, userID, email string) (string, error) {
	if f.paymentErr != nil {
		return "", f.paymentErr
	}
	return f.paymentURL, nil
}

func seedRecord(t *testing.T, store *memStore, userID string, record Record) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	store.records[userID] = data
	store.sets = 0
	store.gets = 0
}

func testGate(store *memStore, provider BillingProvider) *Gate {
	publisher, _ := events.NewPublisher("")
	return NewGate(true, store, provider, publisher)
}

func TestGateDisabledSkipsEverything(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{}
	publisher, _ := events.NewPublisher("")
	gate := NewGate(false, store, provider, publisher)

	check := gate.Check(context.Background(), "anyone")
	assert.True(t, check.Active)
	assert.Zero(t, store.gets)
	assert.Zero(t, store.sets)
	assert.Zero(t, provider.statusCall)
}

func TestGateFailsClosedWithoutProvider(t *testing.T) {
	publisher, _ := events.NewPublisher("")
	gate := NewGate(true, newMemStore(), nil, publisher)

	check := gate.Check(context.Background(), "u1")
	assert.False(t, check.Active)
	assert.Equal(t, "Subscription service not configured", check.Message)
}

func TestGateCachedActiveSkipsLiveCall(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{}
	gate := testGate(store, provider)

	end := time.Now().Add(20 * 24 * time.Hour)
	seedRecord(t, store, "u1", Record{Status: StatusActive, CurrentPeriodEnd: &end})

	check := gate.Check(context.Background(), "u1")
	assert.True(t, check.Active)
	assert.Zero(t, provider.statusCall, "cached record must satisfy the check")
}

func TestGateCachedTrialExpiredFallsThrough(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{statusErr: ErrNoBillingRecord, paymentURL: "https://pay.example/x"}
	gate := testGate(store, provider)

	end := time.Now().Add(-time.Hour)
	seedRecord(t, store, "u1", Record{Status: StatusTrial, TrialEnd: &end})

	check := gate.Check(context.Background(), "u1")
	assert.False(t, check.Active)
	assert.Equal(t, 1, provider.statusCall)
	assert.Equal(t, "https://pay.example/x", check.PaymentURL)
}

func TestGateLiveRefreshUpdatesCache(t *testing.T) {
	store := newMemStore()
	trialEnd := time.Now().Add(48 * time.Hour)
	provider := &fakeProvider{record: &Record{CustomerID: "cus_1", Status: StatusTrial, TrialEnd: &trialEnd}}
	gate := testGate(store, provider)

	seedRecord(t, store, "u1", Record{Status: StatusInactive})

	check := gate.Check(context.Background(), "u1")
	assert.True(t, check.Active)
	require.Equal(t, 1, store.sets)

	var cached Record
	require.NoError(t, json.Unmarshal(store.records["u1"], &cached))
	assert.Equal(t, StatusTrial, cached.Status)
}

func TestGateDeniedWithPaymentLink(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{
		record:     &Record{CustomerID: "cus_1", Status: StatusCancelled},
		paymentURL: "https://pay.example/checkout",
	}
	gate := testGate(store, provider)

	check := gate.Check(context.Background(), "u1")
	assert.False(t, check.Active)
	assert.Contains(t, check.Message, "subscription is inactive")
	assert.Equal(t, "https://pay.example/checkout", check.PaymentURL)
}

func TestGateDeniedPaymentLinkFailure(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{
		statusErr:  ErrNoBillingRecord,
		paymentErr: errors.New("stripe down"),
	}
	gate := testGate(store, provider)

	check := gate.Check(context.Background(), "u1")
	assert.False(t, check.Active)
	assert.Contains(t, check.Message, "contact support")
	assert.Empty(t, check.PaymentURL)
}

func TestGateFailsOpenOnProviderError(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{statusErr: errors.New("billing outage")}
	gate := testGate(store, provider)

	check := gate.Check(context.Background(), "u1")
	assert.True(t, check.Active, "provider outages must not deny service")
}

func TestApplyWebhookRecord(t *testing.T) {
	store := newMemStore()
	gate := testGate(store, &fakeProvider{})

	end := time.Now().Add(30 * 24 * time.Hour)
	record := &Record{CustomerID: "cus_1", Status: StatusActive, CurrentPeriodEnd: &end}
	require.NoError(t, gate.ApplyWebhookRecord(context.Background(), "u1", record))

	var cached Record
	require.NoError(t, json.Unmarshal(store.records["u1"], &cached))
	assert.Equal(t, StatusActive, cached.Status)
}

func TestMapProviderStatus(t *testing.T) {
	assert.Equal(t, StatusTrial, MapProviderStatus("trialing"))
	assert.Equal(t, StatusActive, MapProviderStatus("active"))
	assert.Equal(t, StatusCancelled, MapProviderStatus("canceled"))
	assert.Equal(t, StatusCancelled, MapProviderStatus("unpaid"))
	assert.Equal(t, StatusCancelled, MapProviderStatus("past_due"))
	assert.Equal(t, StatusInactive, MapProviderStatus("incomplete"))
}

func TestRecordActiveAt(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	var nilRecord *Record
	assert.False(t, nilRecord.ActiveAt(now))

	assert.True(t, (&Record{Status: StatusTrial, TrialEnd: &future}).ActiveAt(now))
	assert.False(t, (&Record{Status: StatusTrial, TrialEnd: &past}).ActiveAt(now))
	assert.False(t, (&Record{Status: StatusTrial}).ActiveAt(now))
	assert.True(t, (&Record{Status: StatusActive, CurrentPeriodEnd: &future}).ActiveAt(now))
	assert.False(t, (&Record{Status: StatusActive, CurrentPeriodEnd: &past}).ActiveAt(now))
	assert.False(t, (&Record{Status: StatusCancelled, CurrentPeriodEnd: &future}).ActiveAt(now))
}
