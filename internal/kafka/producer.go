package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ManifestEvent is the wire form of a dispatched bag manifest. MessageID is
// minted by the notifier before publishing and recorded on the order, so the
// worker side can be replayed without minting new ids.
type ManifestEvent struct {
	MessageID    string        `json:"message_id"`
	OrderID      string        `json:"order_id"`
	AirlineCode  string        `json:"airline_code"`
	FlightNumber string        `json:"flight_number"`
	Destination  string        `json:"destination"`
	Rows         []ManifestRow `json:"rows"`
	SentAt       time.Time     `json:"sent_at"`
}

type ManifestRow struct {
	BagTag    string  `json:"bag_tag"`
	WeightKg  float64 `json:"weight_kg"`
	Passenger string  `json:"passenger"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
