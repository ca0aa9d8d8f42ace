package email

import (
	"context"
	"fmt"

	"github.com/bag2go/bag2go/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.ManifestEvent) error {
	fmt.Printf("send manifest %s to %s for %s %s (%d bags)\n",
		event.MessageID, event.Destination, event.AirlineCode, event.FlightNumber, len(event.Rows))
	return nil
}
