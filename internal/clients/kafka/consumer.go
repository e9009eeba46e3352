package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Shopify/sarama"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/reports"
)

type consumerConfig interface {
	producerConfig
	ConsumerGroup() string
}

type digestGenerator interface {
	Generate(ctx context.Context, cadence string, at time.Time, eligible func(user.Record) bool) ([]reports.Digest, error)
}

type digestSender interface {
	SendDigests(ctx context.Context, digests []reports.Digest)
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topic         string
	generator     digestGenerator
	sender        digestSender
	eligible      func(user.Record) bool
}

func NewConsumer(cfg consumerConfig, generator digestGenerator, sender digestSender, eligible func(user.Record) bool) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers(), cfg.ConsumerGroup(), config)
	return &Consumer{
		consumerGroup: consumerGroup,
		topic:         cfg.TriggersTopic(),
		generator:     generator,
		sender:        sender,
		eligible:      eligible,
	}, err
}

func (c *Consumer) StartConsuming(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("consume from %s", c.topic))
			}
		}
	}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - setup")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - cleanup")
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var trigger Trigger
		err := json.Unmarshal(message.Value, &trigger)
		if err != nil {
			logger.Error("cannot unmarshal kafka message", zap.Error(err))
		} else {
			logger.Info(
				"received report trigger",
				zap.ByteString("key", message.Key),
				zap.String("cadence", trigger.Cadence),
				zap.Time("firedAt", trigger.FiredAt),
			)
			c.processTrigger(session.Context(), trigger)
		}
		session.MarkMessage(message, "")
	}

	return nil
}

func (c *Consumer) processTrigger(ctx context.Context, trigger Trigger) {
	digests, err := c.generator.Generate(ctx, trigger.Cadence, trigger.FiredAt, c.eligible)
	if err != nil {
		logger.Error("failed to generate digests", zap.Error(err))
		return
	}
	c.sender.SendDigests(ctx, digests)
}
