package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"candlecast/internal/domain/forecast"
	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Compile-time check
var _ forecast.Publisher = (*ForecastPublisher)(nil)

const (
	EventTypeForecastCompleted = "forecast.completed"
	eventSource                = "candlecast"
)

// MessageProducer is the subset of the Kafka producer the publisher needs
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// BaseEvent carries the envelope fields shared by all events
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ForecastCompletedEvent announces a finished run together with its points
type ForecastCompletedEvent struct {
	BaseEvent
	Run    forecast.Run     `json:"run"`
	Points []forecast.Point `json:"points"`
}

// ForecastPublisher publishes completed forecasts to Kafka
type ForecastPublisher struct {
	producer MessageProducer
	topic    string
	log      *logger.Logger
	now      func() time.Time
}

// NewForecastPublisher creates a publisher writing to topic
func NewForecastPublisher(producer MessageProducer, topic string, log *logger.Logger) *ForecastPublisher {
	return &ForecastPublisher{
		producer: producer,
		topic:    topic,
		log:      log,
		now:      time.Now,
	}
}

// PublishForecast sends one event keyed by symbol, so runs of one symbol stay ordered
func (p *ForecastPublisher) PublishForecast(ctx context.Context, run forecast.Run, points []forecast.Point) error {
	event := ForecastCompletedEvent{
		BaseEvent: NewBaseEvent(EventTypeForecastCompleted, p.now()),
		Run:       run,
		Points:    points,
	}

	key := run.Symbol
	if key == "" {
		key = run.RunID
	}

	if err := p.producer.Publish(ctx, p.topic, key, event); err != nil {
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published",
		"topic", p.topic,
		"event_id", event.ID,
		"run_id", run.RunID,
		"points", len(points),
	)
	return nil
}

// NewBaseEvent creates a base event with a fresh identifier
func NewBaseEvent(eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Timestamp: at.UTC(),
	}
}
