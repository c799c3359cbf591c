package reconciliation

import (
	"context"
	"strings"

	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/billingrelay/internal/subscription/domain"
)

// Tenant identifies the organization an event belongs to.
type Tenant struct {
	OrgID    string
	PlanCode string
}

// ResolveTenant reads orgId and planCode from checkout metadata, falling back
// to the external subscription id and then the external customer id of a
// previously stored subscription for the same provider.
func ResolveTenant(ctx context.Context, subs subscriptiondomain.Repository, evt *paymentdomain.PaymentEvent) (Tenant, error) {
	planCode := strings.TrimSpace(evt.PlanCode)
	if orgID := strings.TrimSpace(evt.OrgID); orgID != "" {
		return Tenant{OrgID: orgID, PlanCode: planCode}, nil
	}

	sub, err := subs.FindByExternalSubscriptionID(ctx, evt.Provider, strings.TrimSpace(evt.ExternalSubscriptionID))
	if err != nil {
		return Tenant{}, err
	}
	if sub == nil {
		sub, err = subs.FindByExternalCustomerID(ctx, evt.Provider, strings.TrimSpace(evt.ExternalCustomerID))
		if err != nil {
			return Tenant{}, err
		}
	}
	if sub == nil {
		return Tenant{}, ErrUnresolvableTenant
	}

	if planCode == "" {
		planCode = sub.PlanCode
	}
	return Tenant{OrgID: sub.OrgID, PlanCode: planCode}, nil
}
