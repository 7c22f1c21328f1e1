package kafkax

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventMeta is the canonical metadata carried on Kafka messages across services.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
}

// Headers renders meta as Kafka headers; empty fields are omitted.
func (m EventMeta) Headers() []kafka.Header {
	headers := make([]kafka.Header, 0, 3)
	if m.EventID != "" {
		headers = append(headers, kafka.Header{Key: "event_id", Value: []byte(m.EventID)})
	}
	if m.EventType != "" {
		headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(m.EventType)})
	}
	if m.TenantID != "" {
		headers = append(headers, kafka.Header{Key: "tenant_id", Value: []byte(m.TenantID)})
	}
	return headers
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewWriter returns a writer that routes by message key so events of one aggregate stay ordered.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}
