package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/bag2go/bag2go/internal/service/fulfillment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockFulfillmentUseCase is a mock implementation of fulfillment.FulfillmentUseCase
type MockFulfillmentUseCase struct {
	mock.Mock
}

func (m *MockFulfillmentUseCase) CreateBooking(ctx context.Context, input fulfillment.CreateBookingInput) (*fulfillment.BookingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.BookingResult), args.Error(1)
}

func (m *MockFulfillmentUseCase) HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	args := m.Called(ctx, payload, signatureHeader)
	return args.Error(0)
}

func (m *MockFulfillmentUseCase) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockFulfillmentUseCase) RetryFailedNotifications(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func TestOrderHandler_checkout(t *testing.T) {
	mockService := &MockFulfillmentUseCase{}
	handler := NewOrderHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := fulfillment.CreateBookingInput{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		Phone:         "+1-555-0100",
		PickupAddress: "1 Analytical Way",
		PickupTime:    "2026-09-15T10:00:00Z",
		Airline:       "AA",
		FlightNumber:  "AA123",
		Bags:          1,
	}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/api/checkout", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", "user-1")

	expected := input
	expected.UserID = "user-1"
	result := &fulfillment.BookingResult{
		Order:     &domain.Order{ID: "order-1", Status: domain.OrderStatusPending},
		SessionID: "cs_test_123",
	}
	mockService.On("CreateBooking", c.Request.Context(), expected).Return(result, nil)

	handler.checkout(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response checkoutResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "order-1", response.OrderID)
	assert.Equal(t, "cs_test_123", response.SessionID)
	assert.Equal(t, string(domain.OrderStatusPending), response.Status)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_checkout_ValidationError(t *testing.T) {
	mockService := &MockFulfillmentUseCase{}
	handler := NewOrderHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(fulfillment.CreateBookingInput{Bags: 0})
	c.Request = httptest.NewRequest("POST", "/api/checkout", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", "user-1")

	mockService.On("CreateBooking", c.Request.Context(), mock.Anything).
		Return(nil, fmt.Errorf("%w: bags, email", domain.ErrValidation))

	handler.checkout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bags")
}

func TestOrderHandler_paymentWebhook_Ack(t *testing.T) {
	mockService := &MockFulfillmentUseCase{}
	handler := NewOrderHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	c.Request = httptest.NewRequest("POST", "/api/webhooks/payment", bytes.NewReader(payload))
	c.Request.Header.Set("Stripe-Signature", "t=1,v1=abc")

	mockService.On("HandlePaymentEvent", c.Request.Context(), payload, "t=1,v1=abc").Return(nil)

	handler.paymentWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
	mockService.AssertExpectations(t)
}

func TestOrderHandler_paymentWebhook_BadSignature(t *testing.T) {
	mockService := &MockFulfillmentUseCase{}
	handler := NewOrderHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload := []byte(`{}`)
	c.Request = httptest.NewRequest("POST", "/api/webhooks/payment", bytes.NewReader(payload))
	c.Request.Header.Set("Stripe-Signature", "forged")

	mockService.On("HandlePaymentEvent", c.Request.Context(), payload, "forged").
		Return(fmt.Errorf("%w: mismatch", domain.ErrBadSignature))

	handler.paymentWebhook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid signature")
}

func TestOrderHandler_myOrders(t *testing.T) {
	mockService := &MockFulfillmentUseCase{}
	handler := NewOrderHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("GET", "/api/my/orders", nil)
	c.Set("user_id", "user-1")

	orders := []domain.Order{
		{
			ID:                "order-1",
			UserID:            "user-1",
			AirlineCode:       "AA",
			FlightNumber:      "AA123",
			Status:            domain.OrderStatusNotified,
			NotifierMessageID: "msg-1",
			Bags:              []domain.Bag{{TagNumber: "abc12345-1", WeightKg: 0}},
		},
	}
	mockService.On("ListOrdersForUser", c.Request.Context(), "user-1").Return(orders, nil)

	handler.myOrders(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []orderResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response, 1)
	assert.Equal(t, "order-1", response[0].ID)
	assert.Equal(t, string(domain.OrderStatusNotified), response[0].Status)
	assert.Equal(t, "msg-1", response[0].NotifierMessageID)
	assert.Len(t, response[0].Bags, 1)
}
