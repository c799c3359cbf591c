package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	s.ingestWebhook(c, strings.TrimSpace(c.Param("provider")))
}

func (s *Server) handleProviderWebhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.ingestWebhook(c, provider)
	}
}

// ingestWebhook reads the raw body; signatures are computed over the exact
// bytes so the body must not be bound as JSON.
func (s *Server) ingestWebhook(c *gin.Context, provider string) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if !isWebhookClientError(err) {
			s.log.Error("webhook processing failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			err = ErrWebhookProcessing
		}
		AbortWithError(c, err)
		return
	}

	switch {
	case res.Idempotent:
		c.JSON(http.StatusOK, gin.H{"idempotent": true})
	case res.Ignored:
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
