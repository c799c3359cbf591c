package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/smallbiznis/billingrelay/internal/idempotency"
	notificationdomain "github.com/smallbiznis/billingrelay/internal/notification/domain"
	obscontext "github.com/smallbiznis/billingrelay/internal/observability/context"
	obslogger "github.com/smallbiznis/billingrelay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	"github.com/smallbiznis/billingrelay/internal/observability/tracing"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	"github.com/smallbiznis/billingrelay/internal/reconciliation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Webhook    *config.WebhookConfigHolder
	Clock      clock.Clock
	Adapters   *adapters.Registry
	Registry   idempotency.Registry
	Repo       paymentdomain.Repository
	Reconciler *reconciliation.Service
	Notifier   notificationdomain.Emitter
	Collector  *obsmetrics.WebhookCollector `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	secrets    config.ProviderSecrets
	webhook    *config.WebhookConfigHolder
	clock      clock.Clock
	adapters   *adapters.Registry
	registry   idempotency.Registry
	repo       paymentdomain.Repository
	reconciler *reconciliation.Service
	notifier   notificationdomain.Emitter
	collector  *obsmetrics.WebhookCollector
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		secrets:    p.Cfg.Providers,
		webhook:    p.Webhook,
		clock:      p.Clock,
		adapters:   p.Adapters,
		registry:   p.Registry,
		repo:       p.Repo,
		reconciler: p.Reconciler,
		notifier:   p.Notifier,
		collector:  p.Collector,
	}
}

// Result is the acknowledgement of an accepted delivery.
type Result struct {
	// Idempotent marks a delivery already seen by either idempotency tier.
	Idempotent bool
	// Ignored marks an event for an unknown organization that was
	// acknowledged without changes.
	Ignored bool
	Stale   bool
	OrgID   string
}

// IngestWebhook verifies and reconciles one provider delivery. payload must
// be the exact request body.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (res Result, err error) {
	started := s.clock.Now()
	provider = strings.ToLower(strings.TrimSpace(provider))

	ctx, span := tracing.Tracer("payment.webhook").Start(ctx, "webhook.ingest")
	span.SetAttributes(tracing.SafeAttributes(attribute.String("provider", provider))...)
	defer func() {
		outcome := outcomeFor(res, err)
		if s.collector != nil {
			s.collector.Observe(provider, outcome, s.clock.Now().Sub(started))
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	cfg := s.webhook.Get()

	if !s.adapters.ProviderExists(provider) {
		provider = "unknown"
		return Result{}, paymentdomain.ErrProviderNotFound
	}
	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{Secret: s.secrets.SecretFor(provider)})
	if err != nil {
		return Result{}, err
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider), zap.Error(err))
		return Result{}, err
	}

	headerEventID, err := CheckReplay(headers, cfg, s.clock.Now())
	if err != nil {
		s.log.Warn("webhook replay check failed", zap.String("provider", provider), zap.Error(err))
		return Result{}, err
	}

	ctx = obscontext.WithWebhook(ctx, provider, headerEventID)
	log := obslogger.WithContext(ctx, s.log)

	key := idempotency.Key(provider, headerEventID)
	fresh, err := s.registry.Mark(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("idempotency registry: %w", err)
	}
	if !fresh {
		log.Info("duplicate webhook delivery")
		return Result{Idempotent: true}, nil
	}

	res, err = s.process(ctx, log, provider, adapter, payload, headerEventID, cfg)
	if err != nil || res.Ignored {
		// Redeliveries of rejected events must be processed again.
		if forgetErr := s.registry.Forget(context.WithoutCancel(ctx), key); forgetErr != nil {
			log.Warn("failed to release idempotency key", zap.Error(forgetErr))
		}
	}
	return res, err
}

func (s *Service) process(
	ctx context.Context,
	log *zap.Logger,
	provider string,
	adapter paymentdomain.PaymentAdapter,
	payload []byte,
	headerEventID string,
	cfg config.WebhookConfig,
) (Result, error) {
	eventType, err := adapter.EventType(ctx, payload)
	if err != nil {
		return Result{}, err
	}
	if !cfg.IsAllowed(provider, eventType) {
		log.Info("webhook event type not allowed", zap.String("event_type", eventType))
		return Result{}, paymentdomain.ErrUnsupportedEventType
	}

	evt, err := adapter.Parse(ctx, payload)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ProcessingTimeout)
	defer cancel()

	existing, err := s.repo.FindWebhookEvent(ctx, s.db, provider, evt.EventID())
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		log.Info("webhook event already processed", zap.String("event_id", evt.EventID()))
		return Result{Idempotent: true, OrgID: existing.OrgID}, nil
	}

	var outcome *reconciliation.Outcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		outcome, applyErr = s.reconciler.Apply(ctx, tx, reconciliation.Input{
			Event:         evt,
			HeaderEventID: headerEventID,
		})
		return applyErr
	})
	switch {
	case errors.Is(err, reconciliation.ErrDuplicateEvent):
		log.Info("webhook event already processed", zap.String("event_id", evt.EventID()))
		return Result{Idempotent: true}, nil
	case errors.Is(err, reconciliation.ErrOrganizationNotFound) && cfg.AcceptUnknownOrganizations:
		log.Warn("webhook event for unknown organization acknowledged", zap.String("event_id", evt.EventID()))
		return Result{Ignored: true}, nil
	case err != nil:
		return Result{}, err
	}

	s.emitAlert(ctx, evt, outcome)
	return Result{OrgID: outcome.OrgID, Stale: outcome.Stale}, nil
}

func (s *Service) emitAlert(ctx context.Context, evt *paymentdomain.PaymentEvent, outcome *reconciliation.Outcome) {
	if s.notifier == nil {
		return
	}

	title := "Payment update"
	message := fmt.Sprintf("Subscription payment via %s is %s.", evt.Provider, strings.ToLower(string(outcome.Status)))
	switch {
	case outcome.Terminal && outcome.Success:
		title = "Payment received"
		message = fmt.Sprintf("Payment via %s succeeded. Your subscription is active.", evt.Provider)
	case outcome.Terminal:
		title = "Payment failed"
		message = fmt.Sprintf("Payment via %s failed. Your subscription has been cancelled.", evt.Provider)
	}

	data := map[string]any{
		"provider":   evt.Provider,
		"event_type": evt.EventType,
		"reference":  evt.LedgerReference(),
		"status":     string(outcome.Status),
		"plan_code":  outcome.PlanCode,
		"currency":   evt.Currency,
		"amount":     evt.Amount.String(),
		"stale":      outcome.Stale,
	}
	s.notifier.EmitPaymentAlert(context.WithoutCancel(ctx), outcome.OrgID, title, message, notificationdomain.PriorityFor(outcome.Success), data)
}

func outcomeFor(res Result, err error) string {
	switch {
	case err == nil && res.Idempotent:
		return obsmetrics.OutcomeDuplicate
	case err == nil && res.Ignored:
		return obsmetrics.OutcomeIgnored
	case err == nil:
		return obsmetrics.OutcomeProcessed
	case errors.Is(err, paymentdomain.ErrInvalidSignature), errors.Is(err, paymentdomain.ErrMissingSecret):
		return obsmetrics.OutcomeInvalidSignature
	case IsReplayRejection(err), errors.Is(err, ErrMissingEventID):
		return obsmetrics.OutcomeReplayRejected
	case errors.Is(err, paymentdomain.ErrUnsupportedEventType):
		return obsmetrics.OutcomeUnsupported
	case errors.Is(err, reconciliation.ErrUnresolvableTenant):
		return obsmetrics.OutcomeUnresolvable
	case errors.Is(err, reconciliation.ErrOrganizationNotFound):
		return obsmetrics.OutcomeOrgNotFound
	case errors.Is(err, paymentdomain.ErrInvalidPayload), errors.Is(err, paymentdomain.ErrMissingTransactionID):
		return obsmetrics.OutcomeInvalid
	default:
		return obsmetrics.OutcomeError
	}
}
