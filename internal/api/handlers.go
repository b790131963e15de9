package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/store"
)

type handlers struct {
	rules       *store.RuleStore
	subscribers *store.SubscriberRegistry
	logger      zerolog.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "FX Alert Backend is running!")
}

type setAlertRequest struct {
	Symbol    string   `json:"symbol"`
	Condition string   `json:"condition"`
	Value     *float64 `json:"value"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
}

func (h *handlers) setAlert(c *gin.Context) {
	var req setAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	spec := store.RuleSpec{
		Symbol:    req.Symbol,
		Condition: req.Condition,
		Kind:      req.Type,
		Name:      req.Name,
	}
	if req.Value != nil {
		spec.Threshold = decimal.NewFromFloat(*req.Value)
		spec.HasValue = true
	}

	rule, err := h.rules.Create(spec)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}

	h.logger.Info().Int64("rule_id", rule.ID).Str("symbol", rule.Symbol).Msg("alert rule created")
	c.JSON(http.StatusOK, gin.H{"message": "Alert set successfully", "alert": rule})
}

func (h *handlers) getAlerts(c *gin.Context) {
	rules := h.rules.List()
	if rules == nil {
		rules = []store.Rule{}
	}
	c.JSON(http.StatusOK, rules)
}

type deleteAlertRequest struct {
	ID int64 `json:"id"`
}

func (h *handlers) deleteAlert(c *gin.Context) {
	var req deleteAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.rules.Delete(req.ID)
	h.logger.Info().Int64("rule_id", req.ID).Msg("alert rule deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

func (h *handlers) registerToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.subscribers.Register(req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token registered successfully"})
}
