package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/bag2go/bag2go/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func TestManifestNotifier_Dispatch(t *testing.T) {
	mockProducer := &MockProducer{}
	n := NewManifestNotifier(mockProducer, "manifests")

	ctx := context.Background()
	order := &domain.Order{
		ID:           "order-1",
		UserID:       "user-1",
		AirlineCode:  "AA",
		FlightNumber: "AA123",
		Bags: []domain.Bag{
			{TagNumber: "abc-1", WeightKg: 12.5},
			{TagNumber: "abc-2", WeightKg: 0},
		},
	}

	var published kafka.ManifestEvent
	mockProducer.On("Publish", ctx, "manifests", "order-1", mock.AnythingOfType("kafka.ManifestEvent")).
		Run(func(args mock.Arguments) {
			published = args.Get(3).(kafka.ManifestEvent)
		}).Return(nil).Once()

	messageID, err := n.Dispatch(ctx, order)

	assert.NoError(t, err)
	assert.NotEmpty(t, messageID)
	assert.Equal(t, messageID, published.MessageID)
	assert.Equal(t, "aa.manifests+dev@bag2go.dev", published.Destination)
	assert.Len(t, published.Rows, 2)
	assert.Equal(t, "abc-1", published.Rows[0].BagTag)
	assert.Equal(t, 12.5, published.Rows[0].WeightKg)
	assert.Equal(t, "user-1", published.Rows[0].Passenger)

	mockProducer.AssertExpectations(t)
}

func TestManifestNotifier_Dispatch_PublishError(t *testing.T) {
	mockProducer := &MockProducer{}
	n := NewManifestNotifier(mockProducer, "manifests")

	ctx := context.Background()
	order := &domain.Order{ID: "order-1", AirlineCode: "AA", Bags: []domain.Bag{{TagNumber: "a-1"}}}

	mockProducer.On("Publish", ctx, "manifests", "order-1", mock.Anything).
		Return(errors.New("broker unreachable")).Once()

	messageID, err := n.Dispatch(ctx, order)

	assert.Empty(t, messageID)
	assert.ErrorIs(t, err, domain.ErrNotifier)
}

func TestDestinationFor(t *testing.T) {
	assert.Equal(t, "dl.manifests+dev@bag2go.dev", DestinationFor("DL"))
	assert.Equal(t, "ua.manifests+dev@bag2go.dev", DestinationFor("UA"))
	assert.Equal(t, "ops@bag2go.dev", DestinationFor("ZZ"))
	assert.Equal(t, "ops@bag2go.dev", DestinationFor(""))
}
