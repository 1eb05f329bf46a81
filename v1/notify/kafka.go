package notify

import (
	"context"
	"encoding/json"

	sarama "github.com/IBM/sarama"
)

const defaultKafkaTopic = "booksphere-notifications"

// Kafka publishes events to a Kafka topic through a synchronous producer.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// KafkaOption configures a Kafka notifier.
type KafkaOption func(*Kafka)

// WithTopic overrides the topic events are published to.
func WithTopic(t string) KafkaOption {
	return func(k *Kafka) {
		k.topic = t
	}
}

// NewKafka creates a new Kafka notifier connecting to the given brokers.
func NewKafka(brokers []string, cfg *sarama.Config, opts ...KafkaOption) (*Kafka, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	k := &Kafka{producer: producer, topic: defaultKafkaTopic}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Publish implements Notifier.Publish.
func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.UserID),
		Value: sarama.ByteEncoder(data),
	}
	_, _, err = k.producer.SendMessage(msg)
	return err
}

// Close shuts down the underlying producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
