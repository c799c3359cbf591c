package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	orgIDKey     contextKey = "observability_org_id"
	providerKey  contextKey = "observability_provider"
	eventIDKey   contextKey = "observability_event_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithOrgID(ctx context.Context, orgID string) context.Context {
	if ctx == nil || orgID == "" {
		return ctx
	}
	return context.WithValue(ctx, orgIDKey, orgID)
}

func OrgIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(orgIDKey).(string)
	return value
}

// WithWebhook tags the context with the provider and the delivery event id.
func WithWebhook(ctx context.Context, provider, eventID string) context.Context {
	if ctx == nil {
		return ctx
	}
	if provider != "" {
		ctx = context.WithValue(ctx, providerKey, provider)
	}
	if eventID != "" {
		ctx = context.WithValue(ctx, eventIDKey, eventID)
	}
	return ctx
}

func WebhookFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	provider, _ := ctx.Value(providerKey).(string)
	eventID, _ := ctx.Value(eventIDKey).(string)
	return provider, eventID
}
