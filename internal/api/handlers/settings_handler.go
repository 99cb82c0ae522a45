package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/services"
)

// SettingsHandler handles system settings HTTP requests
type SettingsHandler struct {
	settingsService *services.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// SettingsRequest is the incoming settings payload.
type SettingsRequest struct {
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	PaymentFee  decimal.Decimal `json:"payment_fee"`
	BankAccount string          `json:"bank_account" binding:"required"`
}

// HandleGetSettings handles GET /systemSettings/get-system-settings
func (h *SettingsHandler) HandleGetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Systémové nastavenia neexistujú, najprv ich vytvorte"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// HandleSaveSettings handles POST /systemSettings/save-system-settings
func (h *SettingsHandler) HandleSaveSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.settingsService.Save(c.Request.Context(), &models.SystemSettings{
		DeliveryFee: req.DeliveryFee,
		PaymentFee:  req.PaymentFee,
		BankAccount: req.BankAccount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// RegisterRoutes registers the handler's routes
func (h *SettingsHandler) RegisterRoutes(router *gin.Engine) {
	settings := router.Group("/systemSettings")
	settings.POST("/save-system-settings", h.HandleSaveSettings)
	settings.GET("/get-system-settings", h.HandleGetSettings)
}
