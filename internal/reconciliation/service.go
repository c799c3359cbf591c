// Package reconciliation applies one verified payment event to the tenant's
// subscription, entitlement, and payment ledger inside a single transaction.
package reconciliation

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/config"
	ledgerdomain "github.com/smallbiznis/billingrelay/internal/ledger/domain"
	obslogger "github.com/smallbiznis/billingrelay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/billingrelay/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/billingrelay/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Webhook     *config.WebhookConfigHolder
	OrgRepo     orgdomain.Repository
	SubRepo     subscriptiondomain.Repository
	PaymentRepo paymentdomain.Repository
	Ledger      ledgerdomain.Writer
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	webhook     *config.WebhookConfigHolder
	orgRepo     orgdomain.Repository
	subRepo     subscriptiondomain.Repository
	paymentRepo paymentdomain.Repository
	ledger      ledgerdomain.Writer
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:         p.Log.Named("reconciliation"),
		genID:       p.GenID,
		clock:       p.Clock,
		webhook:     p.Webhook,
		orgRepo:     p.OrgRepo,
		subRepo:     p.SubRepo,
		paymentRepo: p.PaymentRepo,
		ledger:      p.Ledger,
		obsMetrics:  p.ObsMetrics,
	}
}

type Input struct {
	Event         *paymentdomain.PaymentEvent
	HeaderEventID string
}

// Outcome describes what a reconciled event changed.
type Outcome struct {
	OrgID    string
	PlanCode string
	Status   subscriptiondomain.Status
	// Stale is set when a newer event already moved the subscription.
	Stale          bool
	Terminal       bool
	Success        bool
	LedgerRecorded bool
}

// Apply runs inside tx. Any returned error must roll the transaction back.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, in Input) (*Outcome, error) {
	evt := in.Event
	orgRepo := s.orgRepo.WithTx(tx)
	subRepo := s.subRepo.WithTx(tx)

	tenant, err := ResolveTenant(ctx, subRepo, evt)
	if err != nil {
		return nil, err
	}
	log := obslogger.WithOrg(s.log, tenant.OrgID)

	// Serializes concurrent deliveries for one organization.
	org, err := orgRepo.LockByID(ctx, tenant.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrOrganizationNotFound
	}

	now := s.clock.Now().UTC()
	inserted, err := s.paymentRepo.InsertWebhookEvent(ctx, tx, &paymentdomain.WebhookEvent{
		ID:            s.genID.Generate(),
		Provider:      evt.Provider,
		EventID:       evt.EventID(),
		HeaderEventID: in.HeaderEventID,
		EventType:     evt.EventType,
		OrgID:         tenant.OrgID,
		Payload:       datatypes.JSON(evt.RawPayload),
		ReceivedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrDuplicateEvent
	}

	outcome := &Outcome{
		OrgID:    tenant.OrgID,
		PlanCode: tenant.PlanCode,
		Terminal: subscriptiondomain.IsTerminalOutcome(evt.ProviderStatus),
		Success:  subscriptiondomain.IsSuccess(evt.ProviderStatus),
	}

	sub, stale, err := s.upsertSubscription(ctx, subRepo, tenant, evt, now)
	if err != nil {
		return nil, err
	}
	outcome.Status = sub.Status
	outcome.Stale = stale
	if outcome.PlanCode == "" {
		outcome.PlanCode = sub.PlanCode
	}

	if stale {
		log.Info("stale payment event, subscription left unchanged",
			zap.String("provider", evt.Provider),
			zap.String("event_id", evt.EventID()),
			zap.Time("occurred_at", evt.OccurredAt),
		)
	} else {
		orgdomain.ApplyEntitlement(org, sub.Status, now, s.webhook.Get().GracePeriod)
		org.UpdatedAt = now
		if err := orgRepo.UpdateEntitlement(ctx, *org); err != nil {
			return nil, err
		}
		s.obsMetrics.RecordEntitlementChange(ctx, string(sub.Status))
	}

	recorded, err := s.ledger.Record(ctx, tx, ledgerdomain.Entry{
		OrgID:              tenant.OrgID,
		Provider:           evt.Provider,
		Reference:          evt.LedgerReference(),
		ExternalInvoiceID:  evt.ExternalInvoiceID,
		EventType:          evt.EventType,
		PlanCode:           outcome.PlanCode,
		ProviderStatus:     evt.ProviderStatus,
		Amount:             evt.Amount,
		AmountInMinorUnits: evt.AmountInMinorUnits,
		Currency:           evt.Currency,
		OccurredAt:         evt.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	outcome.LedgerRecorded = recorded

	s.obsMetrics.RecordPaymentEvent(ctx, evt.Provider, evt.EventType)
	log.Info("payment event reconciled",
		zap.String("provider", evt.Provider),
		zap.String("event_id", evt.EventID()),
		zap.String("status", string(sub.Status)),
		zap.Bool("stale", stale),
		zap.Bool("ledger_recorded", recorded),
	)
	return outcome, nil
}

func (s *Service) upsertSubscription(
	ctx context.Context,
	subRepo subscriptiondomain.Repository,
	tenant Tenant,
	evt *paymentdomain.PaymentEvent,
	now time.Time,
) (*subscriptiondomain.Subscription, bool, error) {
	change := subscriptiondomain.Change{
		Provider:               evt.Provider,
		EventID:                evt.EventID(),
		ProviderStatus:         evt.ProviderStatus,
		PlanCode:               tenant.PlanCode,
		ExternalCustomerID:     evt.ExternalCustomerID,
		ExternalSubscriptionID: evt.ExternalSubscriptionID,
		PeriodStart:            evt.PeriodStart,
		PeriodEnd:              evt.PeriodEnd,
		OccurredAt:             evt.OccurredAt,
		RawPayload:             evt.RawPayload,
	}

	// Read under the organization lock so last_event_at reflects any event
	// committed by a concurrent delivery.
	existing, err := subRepo.FindByOrgID(ctx, tenant.OrgID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		sub := subscriptiondomain.NewSubscription(tenant.OrgID, change, now)
		sub.ID = s.genID.Generate()
		if err := subRepo.Insert(ctx, &sub); err != nil {
			return nil, false, err
		}
		return &sub, false, nil
	}

	stale := existing.Merge(change, now)
	if stale {
		existing.UpdatedAt = now
	}
	if err := subRepo.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, stale, nil
}
