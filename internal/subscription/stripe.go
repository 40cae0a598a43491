package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// Monthly price ensured when no explicit price id is configured.
const (
	priceUnitAmount = 299 // $2.99
	priceCurrency   = "usd"
)

// StripeProvider implements BillingProvider against Stripe. Customers are
// keyed by a userId metadata entry so the local user id never depends on an
// email address.
type StripeProvider struct {
	sc            *client.API
	productID     string
	trialDays     int64
	baseURL       string
	webhookSecret string

	priceOnce sync.Once
	priceID   string
	priceErr  error
}

// NewStripeProvider builds the provider. priceID may be empty, in which
// case a recurring monthly price on productID is found or created lazily.
func NewStripeProvider(secretKey, priceID, productID, webhookSecret, baseURL string, trialDays int) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProvider{
		sc:            sc,
		productID:     productID,
		trialDays:     int64(trialDays),
		baseURL:       baseURL,
		webhookSecret: webhookSecret,
		priceID:       priceID,
	}
}

// price resolves the recurring price id, creating it on first use if
// needed.
func (p *StripeProvider) price() (string, error) {
	p.priceOnce.Do(func() {
		if p.priceID != "" {
			return
		}
		if p.productID == "" {
			p.priceErr = fmt.Errorf("stripe: neither STRIPE_PRICE_ID nor STRIPE_PRODUCT_ID configured")
			return
		}

		listParams := &stripe.PriceListParams{
			Product: stripe.String(p.productID),
			Type:    stripe.String("recurring"),
			Active:  stripe.Bool(true),
		}
		iter := p.sc.Prices.List(listParams)
		for iter.Next() {
			price := iter.Price()
			if price.UnitAmount == priceUnitAmount &&
				string(price.Currency) == priceCurrency &&
				price.Recurring != nil &&
				price.Recurring.Interval == stripe.PriceRecurringIntervalMonth {
				p.priceID = price.ID
				return
			}
		}
		if err := iter.Err(); err != nil {
			p.priceErr = fmt.Errorf("stripe: listing prices: %w", err)
			return
		}

		created, err := p.sc.Prices.New(&stripe.PriceParams{
			UnitAmount: stripe.Int64(priceUnitAmount),
			Currency:   stripe.String(priceCurrency),
			Product:    stripe.String(p.productID),
			Recurring: &stripe.PriceRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			},
		})
		if err != nil {
			p.priceErr = fmt.Errorf("stripe: creating price: %w", err)
			return
		}
		logging.Info("Subscription", "created recurring price %s", created.ID)
		p.priceID = created.ID
	})
	return p.priceID, p.priceErr
}

// findCustomer searches for the customer carrying the userId metadata.
func (p *StripeProvider) findCustomer(userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['userId']:'%s'", userID),
			Limit: stripe.Int64(1),
		},
	}
	iter := p.sc.Customers.Search(params)
	for iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: searching customers: %w", err)
	}
	return nil, nil
}

func (p *StripeProvider) SubscriptionStatus(ctx context.Context, userID string) (*Record, error) {
	customer, err := p.findCustomer(userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNoBillingRecord
	}

	listParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customer.ID),
		Status:   stripe.String("all"),
	}
	listParams.Limit = stripe.Int64(1)

	iter := p.sc.Subscriptions.List(listParams)
	for iter.Next() {
		return recordFromSubscription(customer.ID, iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: listing subscriptions: %w", err)
	}

	return &Record{CustomerID: customer.ID, Status: StatusInactive}, nil
}

func (p *StripeProvider) CreatePaymentLink(ctx context.Context, userID, email string) (string, error) {
	priceID, err := p.price()
	if err != nil {
		return "", err
	}

	customer, err := p.findCustomer(userID)
	if err != nil {
		return "", err
	}
	if customer == nil {
		params := &stripe.CustomerParams{}
		if email != "" {
			params.Email = stripe.String(email)
		}
		params.AddMetadata("userId", userID)

		customer, err = p.sc.Customers.New(params)
		if err != nil {
			return "", fmt.Errorf("stripe: creating customer: %w", err)
		}
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customer.ID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(p.trialDays),
		},
		SuccessURL: stripe.String(p.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.baseURL + "/cancelled"),
	}
	sessionParams.AddMetadata("userId", userID)

	session, err := p.sc.CheckoutSessions.New(sessionParams)
	if err != nil {
		return "", fmt.Errorf("stripe: creating checkout session: %w", err)
	}
	return session.URL, nil
}

// ParseWebhook verifies the event signature and, for subscription
// lifecycle events, resolves the affected local user and the refreshed
// record. A nil record with nil error means the event type is ignored.
func (p *StripeProvider) ParseWebhook(payload []byte, sigHeader string) (string, *Record, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, p.webhookSecret)
	if err != nil {
		return "", nil, fmt.Errorf("stripe: verifying webhook signature: %w", err)
	}

	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
	default:
		logging.Debug("Subscription", "ignoring webhook event %s", event.Type)
		return "", nil, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return "", nil, fmt.Errorf("stripe: decoding subscription event: %w", err)
	}
	if sub.Customer == nil {
		return "", nil, fmt.Errorf("stripe: subscription event without customer")
	}

	customer, err := p.sc.Customers.Get(sub.Customer.ID, nil)
	if err != nil {
		return "", nil, fmt.Errorf("stripe: fetching customer %s: %w", sub.Customer.ID, err)
	}

	userID := customer.Metadata["userId"]
	if userID == "" {
		return "", nil, fmt.Errorf("stripe: customer %s has no userId metadata", customer.ID)
	}

	return userID, recordFromSubscription(customer.ID, &sub), nil
}

func recordFromSubscription(customerID string, sub *stripe.Subscription) *Record {
	record := &Record{
		CustomerID:     customerID,
		SubscriptionID: sub.ID,
		Status:         MapProviderStatus(string(sub.Status)),
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		record.TrialEnd = &t
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0)
		record.CurrentPeriodEnd = &t
	}
	return record
}
