// Package kafka fans compliance events out to a Kafka topic so downstream
// reporting and case-review systems get them without polling the store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"tokengate/internal/event"
)

const defaultTopic = "tokengate.compliance.events"

// Publisher produces one JSON record per event, keyed by event type so
// consumers can partition by class.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithTopic(topic string) Option {
	return func(p *Publisher) { p.topic = topic }
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	p := &Publisher{client: client, topic: defaultTopic}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureTopic(ctx context.Context) error {
	admin := kadm.NewClient(p.client)
	topics, err := admin.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(p.topic) {
		return nil
	}
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, p.topic); err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	return nil
}

// Publish produces the event synchronously. The event worker calls this off
// the request path, so blocking on acks is acceptable.
func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Type),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", ev.ID, err)
	}
	if p.logger != nil {
		p.logger.DebugContext(ctx, "event published",
			"event_id", ev.ID, "type", string(ev.Type), "topic", p.topic)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
