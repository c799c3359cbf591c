// Package domain defines payment alerts sent to organization admins.
package domain

import (
	"context"
	"time"
)

// Priority is the alert severity.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// PriorityFor maps a payment outcome to alert severity. Failures page.
func PriorityFor(success bool) Priority {
	if success {
		return PriorityNormal
	}
	return PriorityHigh
}

type PaymentAlert struct {
	ID        string
	OrgID     string
	Title     string
	Message   string
	Priority  Priority
	Data      map[string]any
	CreatedAt time.Time
}

// Emitter queues payment alerts. EmitPaymentAlert never blocks the caller
// and never reports delivery errors.
type Emitter interface {
	EmitPaymentAlert(ctx context.Context, orgID, title, message string, priority Priority, data map[string]any)
}

// Sink delivers one alert to a channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, alert PaymentAlert) error
}
