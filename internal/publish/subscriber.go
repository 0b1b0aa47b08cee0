package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/frame"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Subscriber reads published frames back from Kafka.
type Subscriber struct {
	reader messageReader
	logger *zap.Logger
}

// NewSubscriber joins cfg.GroupID on cfg.Topic.
func NewSubscriber(cfg config.PublishConfig, logger *zap.Logger) (*Subscriber, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
			zap.String("group_id", cfg.GroupID),
		)
		return nil, ErrInvalidKafkaConfig
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		Logger:      kafkaZapLogger{logger.Named("kafka-reader").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-reader-error").WithOptions(zap.AddCallerSkip(1))},
	}
	r := kafka.NewReader(readerCfg)

	logger.Info("Kafka frame subscriber created",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
	)
	return newSubscriber(r, logger), nil
}

func newSubscriber(r messageReader, logger *zap.Logger) *Subscriber {
	return &Subscriber{reader: r, logger: logger}
}

// Delivery is a decoded frame with where it was read from. Source is the
// publishing overlay's id; frames of one source arrive in sequence order.
type Delivery struct {
	Frame     frame.Frame
	Source    string
	Partition int
	Offset    int64
}

// Run hands every decoded frame to handle until ctx is cancelled or a fetch
// fails. Payloads that are not frames are logged and skipped. A message is
// committed once handle returns nil; a handler error stops the loop.
func (s *Subscriber) Run(ctx context.Context, handle func(Delivery) error) error {
	sugar := s.logger.Sugar()
	sugar.Info("Starting Kafka frame subscriber loop...")

	defer func() {
		if err := s.reader.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka reader cleanly", zap.Error(err))
		}
		sugar.Info("Kafka frame subscriber loop stopped.")
	}()

	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Debug("Context cancelled, stopping subscriber fetch loop.", zap.Error(err))
				return context.Canceled
			}
			s.logger.Error("Error fetching message from Kafka", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrKafkaFetchFailed, err)
		}

		f, err := frame.Decode(m.Value)
		if err != nil {
			s.logger.Warn("Failed to parse frame, skipping",
				zap.Int64("offset", m.Offset),
				zap.Int("partition", m.Partition),
				zap.Error(err),
			)
		} else if err := handle(Delivery{Frame: f, Source: string(m.Key), Partition: m.Partition, Offset: m.Offset}); err != nil {
			return fmt.Errorf("%w: %w", ErrHandlerFailed, err)
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}
			s.logger.Warn("Failed to commit frame offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}
