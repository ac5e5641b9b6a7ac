// Package kafka hands rendered emails to the mail relay through a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Brokers parses a comma separated broker list, dropping blanks.
func Brokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type Notifier struct {
	w     messageWriter
	close func() error
}

// New returns a notifier writing to topic. Messages are keyed by recipient so all mail for one
// customer stays ordered on a partition.
func New(brokers []string, topic string) *Notifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{w: w, close: w.Close}
}

func (n *Notifier) Send(ctx context.Context, msg domnotif.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka notifier: encode: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	err = n.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.To),
		Value:   payload,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka notifier: write: %w", err)
	}
	return nil
}

func (n *Notifier) Close() error {
	if n.close == nil {
		return nil
	}
	return n.close()
}
