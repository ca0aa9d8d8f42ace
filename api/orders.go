package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/bag2go/bag2go/internal/service/fulfillment"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service fulfillment.FulfillmentUseCase
}

type checkoutResponse struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type bagResponse struct {
	TagNumber string  `json:"tag_number"`
	WeightKg  float64 `json:"weight_kg"`
}

type orderResponse struct {
	ID                string        `json:"id"`
	Status            string        `json:"status"`
	AirlineCode       string        `json:"airline_code"`
	FlightNumber      string        `json:"flight_number"`
	PickupAddress     string        `json:"pickup_address"`
	PickupAt          string        `json:"pickup_at"`
	Bags              []bagResponse `json:"bags"`
	NotifierMessageID string        `json:"notifier_message_id,omitempty"`
	CreatedAt         string        `json:"created_at"`
}

func NewOrderHandler(service fulfillment.FulfillmentUseCase) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Register(router *gin.RouterGroup, requireUser gin.HandlerFunc) {
	router.POST("/checkout", requireUser, h.checkout)
	router.GET("/my/orders", requireUser, h.myOrders)
	router.POST("/webhooks/payment", h.paymentWebhook)
}

func (h *OrderHandler) checkout(c *gin.Context) {
	var input fulfillment.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.UserID = c.GetString("user_id")

	result, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		OrderID:   result.Order.ID,
		SessionID: result.SessionID,
		Status:    string(result.Order.Status),
	})
}

// paymentWebhook acknowledges every authentic event, including ones whose
// downstream notification failed; recovery runs through the retry sweep, not
// through provider redelivery.
func (h *OrderHandler) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	err = h.service.HandlePaymentEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event not processed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *OrderHandler) myOrders(c *gin.Context) {
	orders, err := h.service.ListOrdersForUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := make([]orderResponse, 0, len(orders))
	for i := range orders {
		response = append(response, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, response)
}

func toOrderResponse(order *domain.Order) orderResponse {
	bags := make([]bagResponse, 0, len(order.Bags))
	for _, bag := range order.Bags {
		bags = append(bags, bagResponse{TagNumber: bag.TagNumber, WeightKg: bag.WeightKg})
	}
	return orderResponse{
		ID:                order.ID,
		Status:            string(order.Status),
		AirlineCode:       order.AirlineCode,
		FlightNumber:      order.FlightNumber,
		PickupAddress:     order.PickupAddress,
		PickupAt:          order.PickupAt.Format(time.RFC3339),
		Bags:              bags,
		NotifierMessageID: order.NotifierMessageID,
		CreatedAt:         order.CreatedAt.Format(time.RFC3339),
	}
}
