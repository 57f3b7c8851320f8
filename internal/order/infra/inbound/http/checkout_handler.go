package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventDomain "github.com/davicafu/eventify/internal/event/domain"
	"github.com/davicafu/eventify/internal/order/application"
)

// CheckoutHandler encapsula los endpoints HTTP del flujo de compra.
type CheckoutHandler struct {
	service *application.CheckoutService
}

func NewCheckoutHandler(service *application.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// Checkout endpoint POST /checkout (ruta protegida: requiere sesión)
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req struct {
		EventID    string `json:"event_id" binding:"required"`
		BuyerID    string `json:"buyer_id" binding:"required"`
		BuyerEmail string `json:"buyer_email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), application.CheckoutRequest{
		EventID:    eventID,
		BuyerID:    req.BuyerID,
		BuyerEmail: req.BuyerEmail,
	})
	if err != nil {
		if err == eventDomain.ErrEventNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Confirm endpoint POST /checkout/confirm: callback de completitud del widget.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req struct {
		PaymentRef string `json:"payment_ref" binding:"required"`
		EventID    string `json:"event_id" binding:"required"`
		BuyerID    string `json:"buyer_id" binding:"required"`
		BuyerEmail string `json:"buyer_email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), application.ConfirmRequest{
		PaymentRef: req.PaymentRef,
		EventID:    eventID,
		BuyerID:    req.BuyerID,
		BuyerEmail: req.BuyerEmail,
	})
	if err != nil {
		if err == eventDomain.ErrEventNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListOrders endpoint GET /orders?buyer_id=... (ruta protegida)
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	buyerID := c.Query("buyer_id")
	if buyerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buyer_id is required"})
		return
	}

	orders, err := h.service.ListOrders(c.Request.Context(), buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, orders)
}
