package events

import (
	"context"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	"github.com/customeros/rfpstack/internal/logger"
)

type EventsService struct {
	Publisher interfaces.EventPublisher
}

// NewEventsService connects to RabbitMQ when rabbitmqURL is set and falls
// back to a publisher that only logs.
func NewEventsService(rabbitmqURL, appSource string, log logger.Logger, publisherConfig *PublisherConfig) (*EventsService, error) {
	if rabbitmqURL == "" {
		return &EventsService{Publisher: NewNoopPublisher(log)}, nil
	}

	publisher, err := NewRabbitMQPublisher(rabbitmqURL, appSource, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	return &EventsService{
		Publisher: publisher,
	}, nil
}

func (s *EventsService) Close() error {
	if s.Publisher == nil {
		return nil
	}
	return s.Publisher.Close()
}

type noopPublisher struct {
	log logger.Logger
}

func NewNoopPublisher(log logger.Logger) interfaces.EventPublisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) PublishFanoutEvent(_ context.Context, entityId string, entityType enum.EntityType, _ interface{}) error {
	p.log.Debugf("Events disabled, skipping %s event for %s", entityType, entityId)
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
