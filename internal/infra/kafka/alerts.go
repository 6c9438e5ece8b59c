package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
)

const DefaultAlertTopic = "fulfillment.alerts"

// Alert describes one fulfillment branch that failed after payment.
type Alert struct {
	ID         string                `json:"id"`
	Kind       enums.FulfillmentKind `json:"kind"`
	EventID    string                `json:"event_id"`
	ObjectID   string                `json:"object_id"`
	Error      string                `json:"error"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type AlertPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewAlertPublisher returns a publisher that drops alerts when no brokers are configured.
func NewAlertPublisher(brokers []string, topic string) *AlertPublisher {
	addrs := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			addrs = append(addrs, broker)
		}
	}
	if len(addrs) == 0 {
		return &AlertPublisher{now: time.Now}
	}
	if strings.TrimSpace(topic) == "" {
		topic = DefaultAlertTopic
	}

	return &AlertPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(addrs...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

func (p *AlertPublisher) Enabled() bool {
	return p != nil && p.writer != nil
}

func (p *AlertPublisher) Publish(ctx context.Context, alert Alert) error {
	if !p.Enabled() {
		return nil
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = p.now().UTC()
	}

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal fulfillment alert: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.ObjectID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(alert.Kind)},
			{Key: "alert_id", Value: []byte(alert.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish fulfillment alert: %w", err)
	}
	return nil
}

func (p *AlertPublisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
