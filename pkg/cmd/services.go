package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/autoflow/pkg/channels/kafka"
	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/mail"
	"github.com/dukex/autoflow/pkg/otelhelper"
)

// NewSettingsSource reads settings from a YAML file, or serves the defaults when no
// path is given.
func NewSettingsSource(path string) config.Source {
	if path == "" {
		return config.NewStatic(config.Defaults())
	}

	return config.NewFile(path)
}

// NewMailer sends through SMTP when smtpURL is set and logs messages otherwise.
func NewMailer(smtpURL string, logger *slog.Logger) (mail.Mailer, error) {
	if smtpURL == "" {
		return mail.NewLogMailer(logger), nil
	}

	smtpConfig, err := mail.ParseSMTPURL(smtpURL)
	if err != nil {
		return nil, err
	}

	return mail.NewSMTPMailer(smtpConfig, logger), nil
}

// NewTracer installs an OTLP tracer provider when enabled. The returned function
// flushes and stops it.
func NewTracer(ctx context.Context, enabled bool, serviceName string) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	tracerProvider, err := otelhelper.NewTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return tracerProvider.Shutdown, nil
}

// NewTriggerSubscriber consumes the trigger topic as consumer group "cg-<serviceName>".
func NewTriggerSubscriber(brokers string, serviceName string, otelEnabled bool, logger *slog.Logger) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.Config{
		Brokers:       kafka.ParseBrokers(brokers),
		ConsumerGroup: "cg-" + serviceName,
		OTELEnabled:   otelEnabled,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return subscriber, nil
}

func NewTriggerPublisher(brokers string, otelEnabled bool, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers:     kafka.ParseBrokers(brokers),
		OTELEnabled: otelEnabled,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return publisher, nil
}
