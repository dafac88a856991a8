package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/outbox/registry"
)

// topicSource hands out publishers per topic.
type topicSource interface {
	Ping(context.Context) error
	Topic(name string) topicPublisher
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.topics.Topic(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.settings.publishTimeout)
	defer cancel()
	_, err := pub.Publish(publishCtx, newMessage(event, resolved))
	return err
}

// newMessage keys the message by aggregate so consumers see one sale's events in order.
func newMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

type pubsubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// gcpTopics adapts the shared Pub/Sub client to topicSource.
type gcpTopics struct {
	client pubsubClient
}

func (g gcpTopics) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

func (g gcpTopics) Topic(name string) topicPublisher {
	pub := g.client.Publisher(name)
	if pub == nil {
		return nil
	}
	return gcpPublisher{pub: pub}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

// Publish waits for the server ack. A failed ordered publish pauses its key, so the key is
// resumed before the row is retried.
func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	id, err := p.pub.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		p.pub.ResumePublish(msg.OrderingKey)
	}
	return id, err
}
