package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingrelay/internal/clock"
	ledgerdomain "github.com/smallbiznis/billingrelay/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/billingrelay/internal/subscription/domain"
	"github.com/smallbiznis/billingrelay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Writer {
	return &Service{
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) (bool, error) {
	if !subscriptiondomain.IsTerminalOutcome(entry.ProviderStatus) {
		return false, nil
	}

	// An entry the ledger cannot store is skipped; the state change it belongs
	// to still commits.
	row, err := s.build(entry)
	if err != nil {
		s.log.Warn("ledger entry skipped",
			zap.String("org_id", entry.OrgID),
			zap.String("provider", entry.Provider),
			zap.String("reference", entry.Reference),
			zap.String("event_type", entry.EventType),
			zap.Error(err),
		)
		s.obsMetrics.RecordLedgerEntry(ctx, entry.Provider, "invalid")
		return false, nil
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil && !db.IsDuplicateKeyErr(result.Error) {
		return false, result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		s.log.Info("duplicate ledger entry skipped",
			zap.String("org_id", row.OrgID),
			zap.String("provider", row.Provider),
			zap.String("reference", row.Reference),
			zap.String("event_type", row.EventType),
		)
		s.obsMetrics.RecordLedgerEntry(ctx, row.Provider, "duplicate")
		return false, nil
	}

	s.obsMetrics.RecordLedgerEntry(ctx, row.Provider, string(row.Outcome))
	return true, nil
}

func (s *Service) build(entry ledgerdomain.Entry) (ledgerdomain.SubscriptionPayment, error) {
	orgID := strings.TrimSpace(entry.OrgID)
	if orgID == "" {
		return ledgerdomain.SubscriptionPayment{}, ledgerdomain.ErrInvalidOrganization
	}
	provider := strings.ToLower(strings.TrimSpace(entry.Provider))
	if provider == "" {
		return ledgerdomain.SubscriptionPayment{}, ledgerdomain.ErrInvalidProvider
	}
	reference := strings.TrimSpace(entry.Reference)
	if reference == "" {
		return ledgerdomain.SubscriptionPayment{}, ledgerdomain.ErrInvalidReference
	}
	currency := strings.ToUpper(strings.TrimSpace(entry.Currency))
	if currency == "" {
		return ledgerdomain.SubscriptionPayment{}, ledgerdomain.ErrInvalidCurrency
	}

	outcome := ledgerdomain.PaymentOutcomeFailed
	if subscriptiondomain.IsSuccess(entry.ProviderStatus) {
		outcome = ledgerdomain.PaymentOutcomeSucceeded
	}

	now := s.clock.Now().UTC()
	occurredAt := entry.OccurredAt.UTC()
	if entry.OccurredAt.IsZero() {
		occurredAt = now
	}

	var invoiceID *string
	if id := strings.TrimSpace(entry.ExternalInvoiceID); id != "" {
		invoiceID = &id
	}

	return ledgerdomain.SubscriptionPayment{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		Provider:          provider,
		Reference:         reference,
		ExternalInvoiceID: invoiceID,
		EventType:         entry.EventType,
		PlanCode:          entry.PlanCode,
		ProviderStatus:    strings.ToLower(strings.TrimSpace(entry.ProviderStatus)),
		Outcome:           outcome,
		Amount:            ledgerdomain.NormalizeAmount(entry.Amount, currency, entry.AmountInMinorUnits),
		Currency:          currency,
		OccurredAt:        occurredAt,
		CreatedAt:         now,
	}, nil
}
