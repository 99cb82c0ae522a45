package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/eshop/services/orders/internal/services"
)

// respondError maps service-layer failures onto the HTTP error taxonomy:
// validation 400, not-found 404, persistence and processing 500.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var processingErr *services.ProcessingError
	var persistenceErr *services.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Záznam sa nenašiel"})
	case errors.As(err, &processingErr):
		log.Error().Err(err).Int64("order_number", processingErr.OrderNumber).Msg("Export processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    processingErr.Error(),
			"order_id": processingErr.OrderNumber,
		})
	case errors.As(err, &persistenceErr):
		log.Error().Err(err).Msg("Persistence failure")
		// The underlying cause is surfaced for diagnostics
		c.JSON(http.StatusInternalServerError, gin.H{"error": persistenceErr.Error()})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
