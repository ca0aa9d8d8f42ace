package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/bag2go/bag2go/internal/kafka"
	"github.com/google/uuid"
)

// airlineDestinations maps airline codes to their manifest inbox. Unknown
// codes fall back to the operations inbox.
var airlineDestinations = map[string]string{
	"AA": "aa.manifests+dev@bag2go.dev",
	"DL": "dl.manifests+dev@bag2go.dev",
	"UA": "ua.manifests+dev@bag2go.dev",
}

const defaultDestination = "ops@bag2go.dev"

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Notifier dispatches a bag manifest to the airline channel. It is not
// idempotent; callers must guard against repeat dispatch for the same order.
type Notifier interface {
	Dispatch(ctx context.Context, order *domain.Order) (string, error)
}

type ManifestNotifier struct {
	producer Producer
	topic    string
}

func NewManifestNotifier(producer Producer, topic string) *ManifestNotifier {
	return &ManifestNotifier{producer: producer, topic: topic}
}

func (n *ManifestNotifier) Dispatch(ctx context.Context, order *domain.Order) (string, error) {
	rows := make([]kafka.ManifestRow, 0, len(order.Bags))
	for _, bag := range order.Bags {
		rows = append(rows, kafka.ManifestRow{
			BagTag:    bag.TagNumber,
			WeightKg:  bag.WeightKg,
			Passenger: order.UserID,
		})
	}

	event := kafka.ManifestEvent{
		MessageID:    uuid.NewString(),
		OrderID:      order.ID,
		AirlineCode:  order.AirlineCode,
		FlightNumber: order.FlightNumber,
		Destination:  DestinationFor(order.AirlineCode),
		Rows:         rows,
		SentAt:       time.Now().UTC(),
	}

	if err := n.producer.Publish(ctx, n.topic, order.ID, event); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNotifier, err)
	}
	return event.MessageID, nil
}

func DestinationFor(airlineCode string) string {
	if dest, ok := airlineDestinations[airlineCode]; ok {
		return dest
	}
	return defaultDestination
}

var _ Notifier = (*ManifestNotifier)(nil)
