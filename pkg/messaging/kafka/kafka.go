package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jwalitptl/conference-api/pkg/circuitbreaker"
	"github.com/jwalitptl/conference-api/pkg/messaging"
)

type Config struct {
	Brokers []string
	GroupID string
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroker publishes each message keyed by its aggregate so events for
// one paper or invitation stay ordered within a partition.
type KafkaBroker struct {
	config Config
	writer writer
	cb     *circuitbreaker.CircuitBreaker
	logger *zerolog.Logger
}

func NewKafkaBroker(config Config, logger *zerolog.Logger) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug().Msgf(msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}
	return newKafkaBroker(config, w, logger), nil
}

func newKafkaBroker(config Config, w writer, logger *zerolog.Logger) *KafkaBroker {
	return &KafkaBroker{
		config: config,
		writer: w,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "kafka-broker",
			MaxFailures: 5,
			Timeout:     10 * time.Second,
		}),
		logger: logger,
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, topic string, msg messaging.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.cb.Execute(func() error {
		return b.writer.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte(msg.AggregateID),
			Value: value,
			Time:  msg.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.Type)},
			},
		})
	})
}

func (b *KafkaBroker) Subscribe(ctx context.Context, topic string) (<-chan messaging.Message, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.config.Brokers,
		GroupID: b.config.GroupID,
		Topic:   topic,
	})
	msgChan := make(chan messaging.Message, 100)

	go func() {
		defer func() {
			reader.Close()
			close(msgChan)
		}()

		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Error().Err(err).Str("topic", topic).Msg("kafka read failed")
				}
				return
			}
			var msg messaging.Message
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				b.logger.Warn().Err(err).Str("topic", topic).Int64("offset", m.Offset).Msg("dropping malformed message")
				continue
			}
			select {
			case msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func (b *KafkaBroker) Close() error {
	return b.writer.Close()
}
