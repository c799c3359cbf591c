package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	"github.com/smallbiznis/billingrelay/internal/payment/webhook"
	"github.com/smallbiznis/billingrelay/internal/reconciliation"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	// ErrWebhookProcessing replaces unexpected ingestion errors so no
	// internals reach the provider.
	ErrWebhookProcessing = errors.New("webhook_processing_failed")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, reconciliation.ErrOrganizationNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "organization not found",
		}
	case errors.Is(err, ErrNotFound), errors.Is(err, paymentdomain.ErrProviderNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    code,
					Message: validationErrorMessage(err),
				},
			},
		}
	case errors.Is(err, ErrWebhookProcessing):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "unable to process webhook",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrMissingSecret),
		webhook.IsReplayRejection(err):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, webhook.ErrMissingEventID),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrUnsupportedEventType),
		errors.Is(err, paymentdomain.ErrMissingTransactionID),
		errors.Is(err, reconciliation.ErrUnresolvableTenant):
		return true
	default:
		return false
	}
}

// isWebhookClientError reports whether err has a dedicated response.
func isWebhookClientError(err error) bool {
	return asValidationErrors(err) != nil ||
		isUnauthorizedError(err) ||
		isValidationError(err) ||
		errors.Is(err, reconciliation.ErrOrganizationNotFound) ||
		errors.Is(err, paymentdomain.ErrProviderNotFound)
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, webhook.ErrMissingEventID):
		return webhook.ErrMissingEventID.Error()
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return paymentdomain.ErrInvalidPayload.Error()
	case errors.Is(err, paymentdomain.ErrUnsupportedEventType):
		return paymentdomain.ErrUnsupportedEventType.Error()
	case errors.Is(err, paymentdomain.ErrMissingTransactionID):
		return paymentdomain.ErrMissingTransactionID.Error()
	case errors.Is(err, reconciliation.ErrUnresolvableTenant):
		return reconciliation.ErrUnresolvableTenant.Error()
	default:
		return "invalid_request"
	}
}

func validationErrorField(err error) string {
	switch {
	case errors.Is(err, webhook.ErrMissingEventID):
		return "headers"
	case errors.Is(err, paymentdomain.ErrUnsupportedEventType):
		return "event"
	case errors.Is(err, reconciliation.ErrUnresolvableTenant):
		return "metadata"
	case errors.Is(err, paymentdomain.ErrInvalidPayload), errors.Is(err, paymentdomain.ErrMissingTransactionID):
		return "payload"
	default:
		return "request"
	}
}

func validationErrorMessage(err error) string {
	switch {
	case errors.Is(err, webhook.ErrMissingEventID):
		return "event id header is required"
	case errors.Is(err, paymentdomain.ErrUnsupportedEventType):
		return "event type is not supported"
	case errors.Is(err, reconciliation.ErrUnresolvableTenant):
		return "organization could not be resolved"
	case errors.Is(err, paymentdomain.ErrInvalidPayload), errors.Is(err, paymentdomain.ErrMissingTransactionID):
		return "invalid payload"
	default:
		return "invalid request"
	}
}

// classifyErrorForLog returns the error type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return http.StatusText(status), code
}
