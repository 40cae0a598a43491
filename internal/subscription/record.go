package subscription

import "time"

// Status is the normalized subscription state stored per user.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCancelled Status = "cancelled"
)

// MapProviderStatus normalizes a billing-provider subscription status.
func MapProviderStatus(providerStatus string) Status {
	switch providerStatus {
	case "trialing":
		return StatusTrial
	case "active":
		return StatusActive
	case "canceled", "unpaid", "past_due":
		return StatusCancelled
	default:
		return StatusInactive
	}
}

// Record is the cached billing state for one user. It is refreshed from the
// billing provider whenever a live query succeeds, and lets most sessions
// skip the live call entirely.
type Record struct {
	CustomerID       string     `json:"customerId"`
	SubscriptionID   string     `json:"subscriptionId,omitempty"`
	Status           Status     `json:"status"`
	TrialEnd         *time.Time `json:"trialEnd,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

// ActiveAt reports whether the record grants access at the given instant:
// an unexpired trial, or an active subscription inside its billing period.
func (r *Record) ActiveAt(now time.Time) bool {
	if r == nil {
		return false
	}
	if r.Status == StatusTrial && r.TrialEnd != nil && r.TrialEnd.After(now) {
		return true
	}
	if r.Status == StatusActive && r.CurrentPeriodEnd != nil && r.CurrentPeriodEnd.After(now) {
		return true
	}
	return false
}
