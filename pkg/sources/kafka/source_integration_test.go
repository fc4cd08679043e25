//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	kafkachannel "github.com/dukex/autoflow/pkg/channels/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	ctx := context.Background()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("autoflow-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	return brokers
}

func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	require.NoError(t, err)

	defer func() { _ = admin.Close() }()

	err = admin.CreateTopic(topic, &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}, false)
	require.NoError(t, err)
}

func TestSource_KafkaRoundTrip(t *testing.T) {
	brokers := startKafka(t)
	topic := "autoflow.triggers.test"
	createTopic(t, brokers, topic)

	config := kafkachannel.Config{Brokers: brokers, ConsumerGroup: "cg-autoflow-test"}

	subscriber, err := kafkachannel.NewSubscriber(config, watermill.NopLogger{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = subscriber.Close() })

	publisher, err := kafkachannel.NewPublisher(config, watermill.NopLogger{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = publisher.Close() })

	dispatcher := &recordingDispatcher{}
	source := New(subscriber, dispatcher, discardLogger(), WithTopic(topic))
	require.NoError(t, source.Start(context.Background()))

	t.Cleanup(func() { _ = source.Stop(context.Background()) })

	err = NewEmitter(publisher, topic).Emit(context.Background(), "user_registered", map[string]any{"user_id": 9})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(dispatcher.snapshot()) == 1
	}, 60*time.Second, 100*time.Millisecond)

	call := dispatcher.snapshot()[0]
	assert.Equal(t, "user_registered", call.slug)
	assert.Equal(t, float64(9), call.payload["user_id"])
}
