package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes booking events to a single topic.
type Producer struct {
	brokers    []string
	topic      string
	writer     messageWriter
	retryPause time.Duration
	logger     *zerolog.Logger
}

func NewProducer(brokers []string, topic string, logger *zerolog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return newProducer(brokers, topic, writer, logger)
}

func newProducer(brokers []string, topic string, writer messageWriter, logger *zerolog.Logger) *Producer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Producer{
		brokers:    brokers,
		topic:      topic,
		writer:     writer,
		retryPause: 500 * time.Millisecond,
		logger:     logger,
	}
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish writes one keyed message and waits for the leader ack.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug().Str("topic", p.topic).Str("key", key).Msg("Published to Kafka")
	return nil
}

// PublishWithRetry retries Publish with a linearly growing pause.
func (p *Producer) PublishWithRetry(ctx context.Context, key string, value []byte, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, key, value)
		if err == nil {
			return nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", i+1).Str("key", key).Msg("Kafka publish attempt failed")

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(time.Duration(i+1) * p.retryPause):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads the partition list.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info().Int("partitions", len(partitions)).Msg("Connected to Kafka")
	return nil
}
