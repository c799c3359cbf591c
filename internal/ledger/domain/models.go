package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentOutcome is the terminal result recorded on a ledger row.
type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrInvalidReference    = errors.New("invalid_reference")
	ErrInvalidCurrency     = errors.New("invalid_currency")
)

// SubscriptionPayment is one terminal payment outcome. Both
// (provider, reference) and (provider, external_invoice_id) are unique.
type SubscriptionPayment struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             string          `gorm:"size:64;not null;index" json:"org_id"`
	Provider          string          `gorm:"size:64;not null;uniqueIndex:ux_subscription_payments_reference,priority:1;uniqueIndex:ux_subscription_payments_invoice,priority:1" json:"provider"`
	Reference         string          `gorm:"size:255;not null;uniqueIndex:ux_subscription_payments_reference,priority:2" json:"reference"`
	ExternalInvoiceID *string         `gorm:"size:255;uniqueIndex:ux_subscription_payments_invoice,priority:2" json:"external_invoice_id,omitempty"`
	EventType         string          `gorm:"size:128;not null" json:"event_type"`
	PlanCode          string          `gorm:"size:128" json:"plan_code"`
	ProviderStatus    string          `gorm:"size:64;not null" json:"provider_status"`
	Outcome           PaymentOutcome  `gorm:"size:32;not null" json:"outcome"`
	Amount            decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency          string          `gorm:"size:8;not null" json:"currency"`
	OccurredAt        time.Time       `gorm:"not null" json:"occurred_at"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (SubscriptionPayment) TableName() string { return "subscription_payments" }

// Entry is the input to the ledger writer.
type Entry struct {
	OrgID             string
	Provider          string
	Reference         string
	ExternalInvoiceID string
	EventType         string
	PlanCode          string
	ProviderStatus    string
	Amount            decimal.Decimal
	// AmountInMinorUnits marks Amount as cents, kobo and the like.
	AmountInMinorUnits bool
	Currency           string
	OccurredAt         time.Time
}
