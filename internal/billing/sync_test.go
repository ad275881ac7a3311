package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type premiumRecorder struct {
	calls map[string]bool
}

func (r *premiumRecorder) SetPremiumByCustomer(_ context.Context, customerID string, premium bool) error {
	if r.calls == nil {
		r.calls = make(map[string]bool)
	}
	r.calls[customerID] = premium
	return nil
}

func TestHandleEventInvoicePaid(t *testing.T) {
	t.Parallel()

	users := &premiumRecorder{}
	sync := NewSync(zap.NewNop().Sugar(), users)

	payload := []byte(`{"type":"invoice.paid","data":{"object":{"customer":"cus_123"}}}`)
	require.NoError(t, sync.HandleEvent(context.Background(), payload))

	premium, ok := users.calls["cus_123"]
	require.True(t, ok)
	require.True(t, premium)
}

func TestHandleEventSubscriptionDeleted(t *testing.T) {
	t.Parallel()

	users := &premiumRecorder{}
	sync := NewSync(zap.NewNop().Sugar(), users)

	payload := []byte(`{"type":"customer.subscription.deleted","data":{"object":{"customer":"cus_456"}}}`)
	require.NoError(t, sync.HandleEvent(context.Background(), payload))

	premium, ok := users.calls["cus_456"]
	require.True(t, ok)
	require.False(t, premium)
}

func TestHandleEventUnknownKindIgnored(t *testing.T) {
	t.Parallel()

	users := &premiumRecorder{}
	sync := NewSync(zap.NewNop().Sugar(), users)

	payload := []byte(`{"type":"charge.refunded","data":{"object":{"customer":"cus_789"}}}`)
	require.NoError(t, sync.HandleEvent(context.Background(), payload))
	require.Empty(t, users.calls)
}

func TestHandleEventMalformedPayload(t *testing.T) {
	t.Parallel()

	sync := NewSync(zap.NewNop().Sugar(), &premiumRecorder{})
	require.Error(t, sync.HandleEvent(context.Background(), []byte("not json")))
}

func TestHandleEventMissingCustomer(t *testing.T) {
	t.Parallel()

	users := &premiumRecorder{}
	sync := NewSync(zap.NewNop().Sugar(), users)

	payload := []byte(`{"type":"invoice.paid","data":{"object":{}}}`)
	require.Error(t, sync.HandleEvent(context.Background(), payload))
	require.Empty(t, users.calls)
}
