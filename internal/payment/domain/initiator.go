package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// CheckoutRequest describes an outbound payment initialization.
type CheckoutRequest struct {
	Email     string
	Amount    decimal.Decimal
	Currency  string
	Reference string
	Metadata  map[string]string
}

// Initiator starts a hosted checkout with a provider and returns its URL.
// Webhook reconciliation depends only on the metadata it attaches.
type Initiator interface {
	InitializePayment(ctx context.Context, req CheckoutRequest) (string, error)
}

// CheckoutMetadata builds the metadata the tenant resolver reads back from
// webhook payloads.
func CheckoutMetadata(orgID, planCode string) map[string]string {
	metadata := map[string]string{
		MetadataOrgID: strings.TrimSpace(orgID),
	}
	if planCode = strings.TrimSpace(planCode); planCode != "" {
		metadata[MetadataPlanCode] = planCode
	}
	return metadata
}
