package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/bag2go/bag2go/internal/notifier"
	"github.com/bag2go/bag2go/internal/payments"
	"github.com/bag2go/bag2go/internal/repository"
	"github.com/google/uuid"
)

type FulfillmentUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error)
	HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) error
	ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error)
	RetryFailedNotifications(ctx context.Context) ([]domain.Order, error)
}

type Cache interface {
	AcquireDispatchLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseDispatchLock(ctx context.Context, orderID string) error
	GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	SetUserOrders(ctx context.Context, userID string, orders []domain.Order) error
	InvalidateUserOrders(ctx context.Context, userID string) error
}

type FulfillmentService struct {
	orders          repository.OrderRepository
	gateway         payments.Gateway
	notifier        notifier.Notifier
	cache           Cache
	publicDomain    string
	bagPriceCents   int64
	currency        string
	dispatchLockTTL time.Duration
	dispatchTimeout time.Duration
	retryBatchSize  int
}

type CreateBookingInput struct {
	UserID        string `json:"-"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PickupAddress string `json:"pickup_address"`
	PickupTime    string `json:"pickup_time"`
	Airline       string `json:"airline"`
	FlightNumber  string `json:"flight_number"`
	Bags          int    `json:"bags"`
	HazItems      bool   `json:"haz_items"`
	Declarations  string `json:"declarations,omitempty"`
}

// BookingResult pairs the created order with the checkout session the caller
// must redirect the customer to.
type BookingResult struct {
	Order     *domain.Order
	SessionID string
}

type FulfillmentServiceOption func(*FulfillmentService)

func WithCache(cache Cache) FulfillmentServiceOption {
	return func(s *FulfillmentService) {
		s.cache = cache
	}
}

func WithRetryBatchSize(n int) FulfillmentServiceOption {
	return func(s *FulfillmentService) {
		s.retryBatchSize = n
	}
}

func NewFulfillmentService(
	orders repository.OrderRepository,
	gateway payments.Gateway,
	manifests notifier.Notifier,
	publicDomain string,
	bagPriceCents int64,
	currency string,
	dispatchLockTTL, dispatchTimeout time.Duration,
	opts ...FulfillmentServiceOption,
) *FulfillmentService {
	service := &FulfillmentService{
		orders:          orders,
		gateway:         gateway,
		notifier:        manifests,
		publicDomain:    publicDomain,
		bagPriceCents:   bagPriceCents,
		currency:        currency,
		dispatchLockTTL: dispatchLockTTL,
		dispatchTimeout: dispatchTimeout,
		retryBatchSize:  50,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FulfillmentService) CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error) {
	pickupAt, err := validateBooking(input)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         input.Email,
		Phone:         input.Phone,
		PickupAddress: input.PickupAddress,
		PickupAt:      pickupAt,
		AirlineCode:   input.Airline,
		FlightNumber:  input.FlightNumber,
		FlightDate:    pickupAt,
		HazItems:      input.HazItems,
		Declarations:  input.Declarations,
	}
	tagPrefix := order.ID[:8]
	for i := 0; i < input.Bags; i++ {
		order.Bags = append(order.Bags, domain.Bag{TagNumber: fmt.Sprintf("%s-%d", tagPrefix, i+1)})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	successURL := fmt.Sprintf("%s/summary/%s", s.publicDomain, order.ID)
	cancelURL := fmt.Sprintf("%s/schedule?cancelled=1", s.publicDomain)
	sessionID, err := s.gateway.CreateSession(ctx, order, s.bagPriceCents, s.currency, successURL, cancelURL)
	if err != nil {
		// No session means the order can never be paid. Cancel it instead of
		// leaving it dangling in PENDING.
		if _, cErr := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled); cErr != nil {
			log.Printf("cancel unpayable order %s: %v", order.ID, cErr)
		}
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	if err := s.orders.SetPaymentSessionID(ctx, order.ID, sessionID); err != nil {
		return nil, err
	}
	order.PaymentSessionID = sessionID

	if s.cache != nil {
		_ = s.cache.InvalidateUserOrders(ctx, order.UserID)
	}
	return &BookingResult{Order: order, SessionID: sessionID}, nil
}

// HandlePaymentEvent processes one payment-provider callback. Deliveries are
// at-least-once: the same logical event may arrive any number of times, and a
// duplicate must still be able to complete a previously failed notification
// without ever re-dispatching an already sent manifest.
func (s *FulfillmentService) HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.gateway.VerifyAndParse(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) {
			log.Printf("rejected payment event with bad signature: %v", err)
		}
		return err
	}
	if event.Type != payments.EventPaymentCompleted || event.OrderID == "" {
		return nil
	}

	order, err := s.orders.UpdateStatus(ctx, event.OrderID, domain.OrderStatusPending, domain.OrderStatusPaymentConfirmed)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOrderNotFound):
		// Foreign or stale correlation key. Acknowledge, mutate nothing.
		log.Printf("payment event for unknown order %s, ignoring", event.OrderID)
		return nil
	case errors.Is(err, domain.ErrConflict):
		// Duplicate delivery: the order is already past PENDING. Fall through
		// so a previously failed notification can still complete.
		order, err = s.orders.GetByID(ctx, event.OrderID)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if err := s.ensureNotified(ctx, order); err != nil {
		// Notifier trouble is recovered by the retry sweep; the event itself
		// is acknowledged so the provider does not redeliver in a loop.
		log.Printf("notify order %s: %v", order.ID, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateUserOrders(ctx, order.UserID)
	}
	return nil
}

// ensureNotified dispatches the manifest at most once per order. Safe to call
// concurrently from webhook handlers and the retry sweep; every path converges
// on the notifier-message-id guard under the per-order dispatch lock.
func (s *FulfillmentService) ensureNotified(ctx context.Context, order *domain.Order) error {
	if order.Status != domain.OrderStatusPaymentConfirmed && order.Status != domain.OrderStatusNotifyFailed {
		return nil
	}
	if order.NotifierMessageID != "" {
		return s.finishNotified(ctx, order)
	}

	if s.cache != nil {
		ok, err := s.cache.AcquireDispatchLock(ctx, order.ID, s.dispatchLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("dispatch for order %s already in progress", order.ID)
			return nil
		}
		defer func() {
			_ = s.cache.ReleaseDispatchLock(ctx, order.ID)
		}()

		// Re-read under the lock: a concurrent handler may have finished.
		fresh, err := s.orders.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		order = fresh
		if order.NotifierMessageID != "" {
			return s.finishNotified(ctx, order)
		}
		if order.Status != domain.OrderStatusPaymentConfirmed && order.Status != domain.OrderStatusNotifyFailed {
			return nil
		}
	}

	dispatchCtx := ctx
	if s.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, s.dispatchTimeout)
		defer cancel()
	}

	messageID, err := s.notifier.Dispatch(dispatchCtx, order)
	if err != nil {
		if _, cErr := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPaymentConfirmed, domain.OrderStatusNotifyFailed); cErr != nil && !errors.Is(cErr, domain.ErrConflict) {
			return cErr
		}
		return fmt.Errorf("%w: %v", domain.ErrNotifier, err)
	}

	if err := s.orders.SetNotifierMessageID(ctx, order.ID, messageID); err != nil {
		if errors.Is(err, domain.ErrInvariant) {
			log.Printf("INVARIANT: order %s already carries a different notifier message id: %v", order.ID, err)
		}
		return err
	}
	order.NotifierMessageID = messageID
	return s.finishNotified(ctx, order)
}

// finishNotified advances a confirmed order whose manifest is already sent to
// its terminal state. A lost race here means another handler completed it.
func (s *FulfillmentService) finishNotified(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusNotified {
		return nil
	}
	_, err := s.orders.UpdateStatus(ctx, order.ID, order.Status, domain.OrderStatusNotified)
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return err
	}
	return nil
}

func (s *FulfillmentService) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetUserOrders(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	orders, err := s.orders.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetUserOrders(ctx, userID, orders)
	}
	return orders, nil
}

// RetryFailedNotifications re-drives orders stuck in NOTIFY_FAILED. It runs
// from the worker ticker or an operator trigger and is safe alongside late
// duplicate payment events for the same orders.
func (s *FulfillmentService) RetryFailedNotifications(ctx context.Context) ([]domain.Order, error) {
	failed, err := s.orders.ListByStatus(ctx, domain.OrderStatusNotifyFailed, s.retryBatchSize)
	if err != nil {
		return nil, err
	}

	var recovered []domain.Order
	for i := range failed {
		order := failed[i]
		if err := s.ensureNotified(ctx, &order); err != nil {
			log.Printf("retry notify order %s: %v", order.ID, err)
			continue
		}
		fresh, err := s.orders.GetByID(ctx, order.ID)
		if err != nil {
			return recovered, err
		}
		if fresh.Status == domain.OrderStatusNotified {
			recovered = append(recovered, *fresh)
			if s.cache != nil {
				_ = s.cache.InvalidateUserOrders(ctx, fresh.UserID)
			}
		}
	}
	return recovered, nil
}

func validateBooking(input CreateBookingInput) (time.Time, error) {
	var bad []string
	if strings.TrimSpace(input.FirstName) == "" {
		bad = append(bad, "first_name")
	}
	if strings.TrimSpace(input.LastName) == "" {
		bad = append(bad, "last_name")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		bad = append(bad, "email")
	}
	if strings.TrimSpace(input.Phone) == "" {
		bad = append(bad, "phone")
	}
	if strings.TrimSpace(input.PickupAddress) == "" {
		bad = append(bad, "pickup_address")
	}
	if strings.TrimSpace(input.Airline) == "" {
		bad = append(bad, "airline")
	}
	if strings.TrimSpace(input.FlightNumber) == "" {
		bad = append(bad, "flight_number")
	}
	if input.Bags < 1 {
		bad = append(bad, "bags")
	}

	pickupAt, err := time.Parse(time.RFC3339, input.PickupTime)
	if err != nil {
		bad = append(bad, "pickup_time")
	}

	if len(bad) > 0 {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(bad, ", "))
	}
	return pickupAt, nil
}

var _ FulfillmentUseCase = (*FulfillmentService)(nil)
