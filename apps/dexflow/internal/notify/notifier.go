package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

// OrderEvent is the message published when an order changes state. The
// conversational bot consumes these and turns them into chat messages.
type OrderEvent struct {
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers user-facing order updates. Delivery is best-effort:
// implementations log failures and never surface them to the caller, so a
// broken notification channel cannot block a status write.
type Notifier interface {
	Notify(userID, orderID, status, message string)
}

// KafkaNotifier publishes order events to a Kafka topic keyed by user so one
// user's notifications stay ordered.
type KafkaNotifier struct {
	logger   *zap.Logger
	producer *kafka.Producer
	topic    string
}

func NewKafkaNotifier(kafkaBroker, topic string, logger *zap.Logger) (*KafkaNotifier, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaNotifier{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}, nil
}

func (n *KafkaNotifier) Notify(userID, orderID, status, message string) {
	event := OrderEvent{
		UserID:    userID,
		OrderID:   orderID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal order event", zap.String("order_id", orderID), zap.Error(err))
		return
	}

	deliveryChan := make(chan kafka.Event)
	defer close(deliveryChan)

	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(userID),
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		n.logger.Error("Failed to publish order event",
			zap.String("order_id", orderID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	e := <-deliveryChan
	if msg, ok := e.(*kafka.Message); ok && msg.TopicPartition.Error != nil {
		n.logger.Error("Order event delivery failed",
			zap.String("order_id", orderID),
			zap.Error(msg.TopicPartition.Error))
	}
}

func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		n.producer.Close()
	}
	return nil
}
