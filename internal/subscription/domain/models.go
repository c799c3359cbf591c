// Package domain contains the subscription state machine and its persistence model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the reconciled subscription state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPastDue   Status = "PAST_DUE"
	StatusCancelled Status = "CANCELLED"
)

// Subscription holds one row per organization, upserted by OrgID.
type Subscription struct {
	ID                     snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID                  string         `gorm:"size:64;not null;uniqueIndex:ux_subscriptions_org" json:"org_id"`
	Provider               string         `gorm:"size:64;not null" json:"provider"`
	Status                 Status         `gorm:"size:32;not null" json:"status"`
	PlanCode               string         `gorm:"size:128" json:"plan_code"`
	ExternalCustomerID     string         `gorm:"size:255;index:ix_subscriptions_external_customer" json:"external_customer_id"`
	ExternalSubscriptionID string         `gorm:"size:255;index:ix_subscriptions_external_subscription" json:"external_subscription_id"`
	CurrentPeriodStart     *time.Time     `json:"current_period_start"`
	CurrentPeriodEnd       *time.Time     `json:"current_period_end"`
	LastEventID            string         `gorm:"size:255" json:"last_event_id"`
	LastEventAt            *time.Time     `json:"last_event_at"`
	RawPayload             datatypes.JSON `json:"raw_payload"`
	CreatedAt              time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Change is the part of a payment event the state machine consumes.
type Change struct {
	Provider               string
	EventID                string
	ProviderStatus         string
	PlanCode               string
	ExternalCustomerID     string
	ExternalSubscriptionID string
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	OccurredAt             time.Time
	RawPayload             []byte
}
