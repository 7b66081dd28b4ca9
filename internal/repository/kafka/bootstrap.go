package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const bootstrapTopicWait = 5 * time.Second

// ensureOrWarn provisions a single-partition topic; a failure is logged and the
// client still starts, relying on broker auto-creation.
func ensureOrWarn(ctx context.Context, brokers []string, topic string, logger *zap.Logger) {
	err := EnsureTopic(ctx, brokers, TopicSpec{
		Name:              topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
		MaxWait:           bootstrapTopicWait,
	}, logger)
	if err != nil && logger != nil {
		logger.Warn("ensure topic", zap.String("topic", topic), zap.Error(err))
	}
}

func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	ensureOrWarn(ctx, cfg.Brokers, cfg.Topic, logger)
	cfg.Logger = logger
	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, brokers []string, topic string, logger *zap.Logger) *Producer {
	ensureOrWarn(ctx, brokers, topic, logger)
	return NewProducer(brokers, topic).WithLogger(logger)
}
