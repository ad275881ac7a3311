package billing

import (
	"context"
	"fmt"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// Webhook event kinds the sync reacts to. Everything else is logged and
// ignored so the provider never sees the endpoint fail on event kinds it
// started sending later.
const (
	eventInvoicePaid         = "invoice.paid"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

// PremiumSetter flips the premium flag on the user owning a billing customer
// reference.
type PremiumSetter interface {
	SetPremiumByCustomer(ctx context.Context, customerID string, premium bool) error
}

// Sync consumes provider webhook events and mirrors subscription state onto
// user records.
type Sync struct {
	logger     *zap.SugaredLogger
	users      PremiumSetter
	parserPool fastjson.ParserPool
}

func NewSync(logger *zap.SugaredLogger, users PremiumSetter) *Sync {
	return &Sync{logger: logger, users: users}
}

// HandleEvent processes one raw webhook payload. Unrecognized event kinds
// return nil so the webhook endpoint always acknowledges them.
func (s *Sync) HandleEvent(ctx context.Context, payload []byte) error {
	p := s.parserPool.Get()
	defer s.parserPool.Put(p)

	v, err := p.ParseBytes(payload)
	if err != nil {
		return fmt.Errorf("parsing webhook payload: %w", err)
	}

	kind := string(v.GetStringBytes("type"))
	customerID := string(v.GetStringBytes("data", "object", "customer"))

	switch kind {
	case eventInvoicePaid:
		if customerID == "" {
			return fmt.Errorf("event %s carries no customer reference", kind)
		}
		s.logger.Infof("Granting premium to billing customer (%s)", customerID)
		return s.users.SetPremiumByCustomer(ctx, customerID, true)
	case eventSubscriptionDeleted:
		if customerID == "" {
			return fmt.Errorf("event %s carries no customer reference", kind)
		}
		s.logger.Infof("Revoking premium from billing customer (%s)", customerID)
		return s.users.SetPremiumByCustomer(ctx, customerID, false)
	default:
		s.logger.Debugf("Ignoring webhook event of kind (%s)", kind)
		return nil
	}
}
