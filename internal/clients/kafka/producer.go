package kafka

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/logger"
)

// Trigger asks the reporter to generate one cadence's digests.
type Trigger struct {
	Cadence string    `json:"cadence"`
	FiredAt time.Time `json:"firedAt"`
}

type producerConfig interface {
	Brokers() []string
	TriggersTopic() string
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg producerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers(), config)
	return &Producer{
		producer: producer,
		topic:    cfg.TriggersTopic(),
	}, err
}

func (p *Producer) ProduceTrigger(cadence string, at time.Time) error {
	raw, err := json.Marshal(Trigger{Cadence: cadence, FiredAt: at})
	if err != nil {
		return errors.Wrap(err, "marshal trigger")
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(raw),
	})
	return errors.Wrap(err, "produce trigger")
}

func (p *Producer) Close() {
	err := p.producer.Close()
	if err != nil {
		logger.Error("failed to close producer", zap.Error(err))
	}
}
