package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/weiawesome/majex-chat/pkg/log"
)

// KafkaPublisher publishes events to Kafka. The channel passed to Publish is
// mapped to a topic unless a fixed topic is configured; the event key is used
// as the message key so events for one sender stay in one partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

// NewKafkaPublisher creates a producer and makes sure the configured topic exists.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if cfg.Topic != "" {
		if err := ensureTopic(cfg.Brokers, cfg.Topic, cfg.Partitions); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure kafka topic (may already exist)")
		}
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		topic:    cfg.Topic,
		doneCh:   make(chan struct{}),
	}
	go kp.deliveryReports()

	return kp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}

	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (kp *KafkaPublisher) deliveryReports() {
	l := log.L()
	for e := range kp.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l.Error().Err(m.TopicPartition.Error).Msg("kafka delivery failed")
		}
	}
	close(kp.doneCh)
}

// Publish enqueues the event; delivery failures are reported asynchronously.
func (kp *KafkaPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := kp.topic
	if topic == "" {
		topic = channelToTopic(channel)
	}

	err = kp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the producer.
func (kp *KafkaPublisher) Close() error {
	kp.producer.Flush(5000)
	kp.producer.Close()
	<-kp.doneCh
	return nil
}
