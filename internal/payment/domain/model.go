package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
	ProviderStripe      = "stripe"
)

// Metadata keys attached to checkouts by the payment initiation call.
const (
	MetadataOrgID    = "orgId"
	MetadataPlanCode = "planCode"
)

// WebhookEvent is the durable idempotency record. The (provider, event_id)
// pair is unique; event_id is derived from the payload, never from headers.
type WebhookEvent struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider      string         `json:"provider" gorm:"size:64;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	EventID       string         `json:"event_id" gorm:"size:255;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	HeaderEventID string         `json:"header_event_id" gorm:"size:255"`
	EventType     string         `json:"event_type" gorm:"size:128;not null"`
	OrgID         string         `json:"org_id" gorm:"size:64;not null;index"`
	Payload       datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt    time.Time      `json:"received_at" gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// PaymentEvent is the provider-neutral event produced by adapters.
type PaymentEvent struct {
	Provider  string
	EventType string
	// TransactionID is the best available provider identifier for the
	// underlying charge and feeds the durable idempotency key.
	TransactionID     string
	Reference         string
	ExternalInvoiceID string

	OrgID    string
	PlanCode string

	ExternalCustomerID     string
	ExternalSubscriptionID string
	CustomerEmail          string

	ProviderStatus string
	// Amount is in the provider's native unit; AmountInMinorUnits tells the
	// ledger whether it must be scaled down.
	Amount             decimal.Decimal
	AmountInMinorUnits bool
	Currency           string

	PeriodStart *time.Time
	PeriodEnd   *time.Time
	OccurredAt  time.Time
	RawPayload  []byte
}

// EventID returns the durable idempotency key eventType:transactionId.
func (e *PaymentEvent) EventID() string {
	return e.EventType + ":" + e.TransactionID
}

// LedgerReference is the reference stored on the payment ledger row.
func (e *PaymentEvent) LedgerReference() string {
	if e.Reference != "" {
		return e.Reference
	}
	return e.TransactionID
}
