package reconciliation

import "errors"

var (
	// ErrUnresolvableTenant means neither metadata nor a known external id
	// identified the organization.
	ErrUnresolvableTenant = errors.New("unresolvable_tenant")
	// ErrOrganizationNotFound means the resolved organization has no row.
	ErrOrganizationNotFound = errors.New("organization_not_found")
	// ErrDuplicateEvent means the durable (provider, eventType:transactionId)
	// record already exists.
	ErrDuplicateEvent = errors.New("duplicate_event")
)
