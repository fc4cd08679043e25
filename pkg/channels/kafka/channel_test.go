package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "localhost:9092", want: []string{"localhost:9092"}},
		{raw: " a:9092, ,b:9092 ,", want: []string{"a:9092", "b:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBrokers(tt.raw))
		})
	}
}

func TestNewWithoutBrokers(t *testing.T) {
	logger := watermill.NopLogger{}

	_, err := NewSubscriber(Config{ConsumerGroup: "cg"}, logger)
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewPublisher(Config{}, logger)
	assert.ErrorIs(t, err, ErrNoBrokers)
}
