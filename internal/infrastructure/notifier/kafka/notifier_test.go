package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestSendWritesJSONKeyedByRecipient(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	n := &Notifier{w: w}
	msg := domnotif.Message{To: "maria@example.it", Subject: "Order confirmation", HTML: "<p>hi</p>"}

	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "maria@example.it" {
		t.Fatalf("key = %q", w.msgs[0].Key)
	}
	var got domnotif.Message
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got != msg {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	t.Parallel()

	n := &Notifier{w: &captureWriter{}}
	if err := n.Send(context.Background(), domnotif.Message{Subject: "x"}); !errors.Is(err, domnotif.ErrNoRecipient) {
		t.Fatalf("got %v", err)
	}
}

func TestBrokers(t *testing.T) {
	t.Parallel()

	got := Brokers(" kafka-1:9092, ,kafka-2:9092 ")
	if want := []string{"kafka-1:9092", "kafka-2:9092"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Brokers = %v", got)
	}
	if len(Brokers("")) != 0 {
		t.Fatal("empty csv should yield no brokers")
	}
}
