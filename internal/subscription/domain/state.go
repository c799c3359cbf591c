package domain

import (
	"strings"
	"time"
)

// StatusFromProvider maps a provider payment status to a subscription state.
// Anything not recognised as success or failure is treated as past due.
func StatusFromProvider(providerStatus string) Status {
	switch normalizeStatus(providerStatus) {
	case "success", "successful", "succeeded", "paid":
		return StatusActive
	case "failed":
		return StatusCancelled
	default:
		return StatusPastDue
	}
}

// IsTerminalOutcome reports whether the provider status is a final success
// or failure. Only terminal outcomes reach the payment ledger.
func IsTerminalOutcome(providerStatus string) bool {
	switch normalizeStatus(providerStatus) {
	case "success", "successful", "succeeded", "paid", "failed":
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the provider status is a successful payment.
func IsSuccess(providerStatus string) bool {
	return StatusFromProvider(providerStatus) == StatusActive
}

// NewSubscription builds the first row for an organization.
func NewSubscription(orgID string, change Change, now time.Time) Subscription {
	sub := Subscription{
		OrgID:     orgID,
		CreatedAt: now,
	}
	sub.Merge(change, now)
	return sub
}

// Merge applies change in place and reports whether it was stale. A stale
// change is older than the last applied event: it may fill in external ids
// that are still unknown but never moves status, plan, or period.
func (s *Subscription) Merge(change Change, now time.Time) bool {
	stale := s.isStale(change.OccurredAt)

	if s.ExternalCustomerID == "" || !stale {
		s.ExternalCustomerID = keepUnlessEmpty(s.ExternalCustomerID, change.ExternalCustomerID)
	}
	if s.ExternalSubscriptionID == "" || !stale {
		s.ExternalSubscriptionID = keepUnlessEmpty(s.ExternalSubscriptionID, change.ExternalSubscriptionID)
	}
	if stale {
		return true
	}

	s.Provider = keepUnlessEmpty(s.Provider, change.Provider)
	s.Status = StatusFromProvider(change.ProviderStatus)
	s.PlanCode = keepUnlessEmpty(s.PlanCode, change.PlanCode)
	if change.PeriodStart != nil {
		s.CurrentPeriodStart = change.PeriodStart
	}
	if change.PeriodEnd != nil {
		s.CurrentPeriodEnd = change.PeriodEnd
	}
	if len(change.RawPayload) > 0 {
		s.RawPayload = change.RawPayload
	}
	if !change.OccurredAt.IsZero() {
		occurred := change.OccurredAt.UTC()
		s.LastEventAt = &occurred
	}
	s.LastEventID = change.EventID
	s.UpdatedAt = now
	return false
}

func (s *Subscription) isStale(occurredAt time.Time) bool {
	if occurredAt.IsZero() || s.LastEventAt == nil {
		return false
	}
	return occurredAt.Before(*s.LastEventAt)
}

func keepUnlessEmpty(current, incoming string) string {
	if incoming = strings.TrimSpace(incoming); incoming != "" {
		return incoming
	}
	return current
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
