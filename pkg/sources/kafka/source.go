// Package kafka feeds trigger events consumed from a message broker into the workflow
// engine. Any watermill subscriber works; production wiring uses Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTopic = "autoflow.triggers"

	// TriggerMetadataKey carries the trigger slug when the message body is the bare payload.
	TriggerMetadataKey = "autoflow_trigger"
)

var (
	ErrMissingTrigger = errors.New("trigger event has no trigger")
	ErrNotStarted     = errors.New("source not started")
)

// Event is the message body understood by Source. When TriggerMetadataKey is set the
// body is decoded as the payload alone.
type Event struct {
	Trigger string         `json:"trigger"`
	Payload map[string]any `json:"payload"`
}

type Dispatcher interface {
	HandleTrigger(ctx context.Context, slug string, payload map[string]any) error
}

type PayloadValidator interface {
	ValidatePayload(slug string, payload map[string]any) error
}

type Source struct {
	subscriber message.Subscriber
	dispatcher Dispatcher
	validator  PayloadValidator
	topic      string
	tracer     trace.Tracer
	logger     *slog.Logger

	mutex  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Source)

func WithTopic(topic string) Option {
	return func(s *Source) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithPayloadValidator drops events whose payload does not match the trigger's schema.
func WithPayloadValidator(validator PayloadValidator) Option {
	return func(s *Source) {
		s.validator = validator
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Source) {
		s.tracer = tracer
	}
}

func New(subscriber message.Subscriber, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Source {
	source := &Source{
		subscriber: subscriber,
		dispatcher: dispatcher,
		topic:      DefaultTopic,
		tracer:     otelhelper.Tracer(),
		logger:     logger.With("module", "kafka_trigger_source"),
	}

	for _, opt := range opts {
		opt(source)
	}

	return source
}

// Start subscribes to the topic and handles messages until Stop is called or ctx ends.
func (s *Source) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		cancel()

		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}

	done := make(chan struct{})

	s.mutex.Lock()
	s.cancel = cancel
	s.done = done
	s.mutex.Unlock()

	s.logger.InfoContext(ctx, "Trigger source started", "topic", s.topic)

	go func() {
		defer close(done)

		for msg := range messages {
			if s.handle(ctx, msg) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		}
	}()

	return nil
}

// Stop cancels the subscription and waits for the in-flight message.
func (s *Source) Stop(ctx context.Context) error {
	s.mutex.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mutex.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}

	cancel()

	select {
	case <-done:
		s.logger.InfoContext(ctx, "Trigger source stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle reports whether msg should be acked. Malformed and invalid events are acked
// and dropped; dispatch errors are nacked for redelivery.
func (s *Source) handle(ctx context.Context, msg *message.Message) bool {
	event, err := Decode(msg)
	if err != nil {
		s.logger.WarnContext(ctx, "Dropping malformed trigger event", "message_id", msg.UUID, "error", err)

		return true
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "trigger.consume",
		attribute.String(otelhelper.TriggerSlugKey, event.Trigger),
	)
	defer span.End()

	logger := s.logger.With("message_id", msg.UUID, "trigger", event.Trigger)

	if s.validator != nil {
		if err := s.validator.ValidatePayload(event.Trigger, event.Payload); err != nil {
			otelhelper.SetError(span, err)
			logger.WarnContext(ctx, "Dropping trigger event with invalid payload", "error", err)

			return true
		}
	}

	if err := s.dispatcher.HandleTrigger(ctx, event.Trigger, event.Payload); err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to dispatch trigger event", "error", err)

		return false
	}

	logger.DebugContext(ctx, "Trigger event dispatched")

	return true
}

// Decode reads a trigger event from msg. A missing payload decodes as an empty map.
func Decode(msg *message.Message) (Event, error) {
	var event Event

	if trigger := msg.Metadata.Get(TriggerMetadataKey); trigger != "" {
		event.Trigger = trigger

		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &event.Payload); err != nil {
				return Event{}, fmt.Errorf("failed to decode payload: %w", err)
			}
		}
	} else if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode trigger event: %w", err)
	}

	if event.Trigger == "" {
		return Event{}, ErrMissingTrigger
	}

	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	return event, nil
}

// Emitter publishes trigger events in the format Source consumes: the payload as the
// body and the trigger slug in metadata.
type Emitter struct {
	publisher message.Publisher
	topic     string
}

func NewEmitter(publisher message.Publisher, topic string) *Emitter {
	if topic == "" {
		topic = DefaultTopic
	}

	return &Emitter{publisher: publisher, topic: topic}
}

func (e *Emitter) Emit(ctx context.Context, trigger string, payload map[string]any) error {
	if trigger == "" {
		return ErrMissingTrigger
	}

	if payload == nil {
		payload = map[string]any{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode trigger event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(ctx)
	msg.Metadata.Set(TriggerMetadataKey, trigger)

	if err := e.publisher.Publish(e.topic, msg); err != nil {
		return fmt.Errorf("failed to publish trigger event: %w", err)
	}

	return nil
}
