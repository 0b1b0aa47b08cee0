package publish

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/frame"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends every rendered frame to a Kafka topic. Writes are
// asynchronous so the event loop never waits on a broker. Frames are keyed
// by source and hashed, so one overlay's frames stay on one partition in
// sequence order.
type Publisher struct {
	writer messageWriter
	topic  string
	source string
	logger *zap.Logger
}

// NewPublisher creates an asynchronous Kafka writer for cfg.Topic.
func NewPublisher(cfg config.PublishConfig, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.SourceID == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
			zap.String("source_id", cfg.SourceID),
		)
		return nil, ErrInvalidKafkaConfig
	}

	completionLogger := logger.Named("kafka-writer")
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				completionLogger.Warn("Dropped frames after failed write",
					zap.Int("count", len(messages)),
					zap.Error(err),
				)
			}
		},
		Logger:      kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}

	logger.Info("Kafka frame publisher created",
		zap.String("topic", cfg.Topic),
		zap.String("source_id", cfg.SourceID),
		zap.Strings("brokers", cfg.Brokers),
	)
	return newPublisher(writer, cfg.Topic, cfg.SourceID, logger), nil
}

func newPublisher(w messageWriter, topic, source string, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, source: source, logger: logger}
}

// Render publishes the frame.
func (p *Publisher) Render(f frame.Frame) error {
	data, err := frame.Encode(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	msg := kafka.Message{
		Key:   []byte(p.source),
		Value: data,
		Time:  f.Timestamp,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Warn("Failed to queue frame for publishing", zap.Uint64("seq", f.Seq), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close flushes pending frames and closes the writer.
func (p *Publisher) Close() error {
	p.logger.Info("Closing Kafka frame publisher...", zap.String("topic", p.topic))
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer cleanly", zap.Error(err))
		return err
	}
	return nil
}
