package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusPaymentConfirmed OrderStatus = "PAYMENT_CONFIRMED"
	OrderStatusNotified         OrderStatus = "NOTIFIED"
	OrderStatusNotifyFailed     OrderStatus = "NOTIFY_FAILED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusNotified || s == OrderStatusCancelled
}

type Order struct {
	ID                string
	UserID            string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	PickupAddress     string
	PickupAt          time.Time
	AirlineCode       string
	FlightNumber      string
	FlightDate        time.Time
	HazItems          bool
	Declarations      string
	Status            OrderStatus
	PaymentSessionID  string
	NotifierMessageID string
	Bags              []Bag
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Bag struct {
	ID        int64
	OrderID   string
	TagNumber string
	WeightKg  float64
}
