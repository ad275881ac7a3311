package server

import (
	"net/http"
)

// billingWebhook handles HTTP requests on "POST /billing/webhook". The
// provider retries on non-200, so processing failures are logged and
// acknowledged anyway; only transient store errors would warrant a retry and
// those surface in the logs.
func (h *handler) billingWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.billingSync.HandleEvent(r.Context(), readBody(r)); err != nil {
		h.logger.Warnf("Failed to process billing webhook event: %v", err)
	}

	h.respond(w, http.StatusOK, "OK", nil)
}

// premiumCheckout handles HTTP requests on
// "POST /billing/premium-checkout-session". Users registered before billing
// was configured get their customer record created lazily.
func (h *handler) premiumCheckout(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.fail(w, http.StatusBadRequest, "Billing is not configured")
		return
	}

	user := userFromContext(r.Context())

	customerID := ""
	if user.BillingCustomerID != nil {
		customerID = *user.BillingCustomerID
	} else {
		id, err := h.billing.CreateCustomer(r.Context(), user.Email)
		if err != nil {
			h.logger.Errorf("creating billing customer: %v", err)
			h.fail(w, http.StatusBadRequest, "Payment provider is unavailable")
			return
		}
		if err := h.store.SetBillingCustomer(r.Context(), user.ID, id); err != nil {
			h.storeError(w, err)
			return
		}
		customerID = id
	}

	url, err := h.billing.CreateCheckoutSession(r.Context(), customerID)
	if err != nil {
		h.logger.Errorf("creating checkout session: %v", err)
		h.fail(w, http.StatusBadRequest, "Payment provider is unavailable")
		return
	}

	h.respond(w, http.StatusOK, "OK", extra{"url": url})
}
