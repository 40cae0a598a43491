package handlers

import (
	"io"
	"net/http"

	"github.com/taskbridge/todoist-mcp/pkg/logging"
)

// CreateSubscription returns a checkout URL for the user.
func (h *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	paymentURL, err := h.gate.PaymentLink(r.Context(), req.UserID, req.Email)
	if err != nil {
		logging.Error("Subscription", err, "creating payment link for user %s", req.UserID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not create a payment link"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"paymentUrl": paymentURL})
}

// SubscriptionStatus reports whether a user currently has access, and the
// cached record when one exists.
func (h *Handlers) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := readJSON(r, &req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	check := h.gate.Check(r.Context(), req.UserID)

	record, err := h.gate.StatusFor(r.Context(), req.UserID)
	if err != nil {
		// Access decision already made; the detail record is best-effort.
		logging.Warn("Subscription", "status lookup for user %s: %v", req.UserID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"isActive":     check.Active,
		"subscription": record,
	})
}

// StripeWebhook ingests billing events. The signature is verified before
// anything is trusted; unrecognized event types are acknowledged and
// dropped.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripe == nil {
		http.Error(w, "Billing not configured", http.StatusNotImplemented)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Could not read request body", http.StatusBadRequest)
		return
	}

	userID, record, err := h.stripe.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logging.Warn("Subscription", "webhook rejected: %v", err)
		http.Error(w, "Webhook verification failed", http.StatusBadRequest)
		return
	}
	if record == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.gate.ApplyWebhookRecord(r.Context(), userID, record); err != nil {
		logging.Error("Subscription", err, "applying webhook record for user %s", userID)
		http.Error(w, "Could not persist subscription update", http.StatusInternalServerError)
		return
	}

	logging.Info("Subscription", "webhook updated subscription for user %s to %s", userID, record.Status)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
