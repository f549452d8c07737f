package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes events to a Pub/Sub topic.
type PubSubPublisher struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher wraps an existing topic. The caller owns the client.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

// DialPubSub creates a client for projectID and publishes to topicID. Close releases both.
func DialPubSub(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, errors.New("pubsub publisher: project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher: new client: %w", err)
	}
	p, err := NewPubSubPublisher(client.Topic(topicID))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	p.client = client
	return p, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes(event)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Ping fails when the topic does not exist.
func (p *PubSubPublisher) Ping(ctx context.Context) error {
	ok, err := p.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publisher: topic lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("pubsub publisher: topic %s not found", p.topic.ID())
	}
	return nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
