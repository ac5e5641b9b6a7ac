package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/colleshop/internal/domain/order"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/shopspring/decimal"
)

type captureNotifier struct {
	msgs []domnotif.Message
	err  error
}

func (c *captureNotifier) Send(ctx context.Context, msg domnotif.Message) error {
	if c.err != nil {
		return c.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send called without a deadline")
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func sampleOrder() *domorder.Order {
	return &domorder.Order{
		ID:     "9f1c2d3e-aaaa-bbbb-cccc-1234abcd5678",
		Status: domorder.StatusPending,
		Items: []domorder.LineItem{
			{ProductID: "p1", Name: "Tintilia <Riserva>", UnitPrice: decimal.RequireFromString("24"), Quantity: 2},
		},
		Subtotal:    decimal.RequireFromString("48"),
		ShippingFee: decimal.RequireFromString("10"),
		Total:       decimal.RequireFromString("58"),
		Customer:    domorder.Customer{Name: "Maria", Email: "maria@example.it"},
		MockPayment: true,
	}
}

func TestOrderPlacedSendsConfirmation(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	svc := NewService(n, time.Second, observability.Nop())

	if err := svc.OnOrderPlaced(context.Background(), domorder.NewOrderPlacedEvent(sampleOrder())); err != nil {
		t.Fatalf("OnOrderPlaced: %v", err)
	}
	if len(n.msgs) != 1 {
		t.Fatalf("sent %d messages", len(n.msgs))
	}
	msg := n.msgs[0]
	if msg.To != "maria@example.it" || !strings.Contains(msg.Subject, "#ABCD5678") {
		t.Fatalf("unexpected message header %q / %q", msg.To, msg.Subject)
	}
	for _, want := range []string{"58.00", "test mode", "Tintilia &lt;Riserva&gt;"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestShippedIncludesTracking(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	svc := NewService(n, time.Second, observability.Nop())

	o := sampleOrder()
	o.Status = domorder.StatusShipped
	o.Tracking = &domorder.Tracking{Number: "RR123456789IT", Courier: "Poste Italiane"}

	if err := svc.OnStatusChanged(context.Background(), domorder.NewOrderStatusChangedEvent(o, domorder.StatusPaid)); err != nil {
		t.Fatalf("OnStatusChanged: %v", err)
	}
	body := n.msgs[0].HTML
	if !strings.Contains(body, "RR123456789IT") || !strings.Contains(body, "Poste Italiane") {
		t.Fatalf("tracking missing from body: %s", body)
	}
}

func TestSkipsOrdersWithoutEmail(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	svc := NewService(n, time.Second, observability.Nop())

	o := sampleOrder()
	o.Customer.Email = ""
	if err := svc.OnOrderPlaced(context.Background(), domorder.NewOrderPlacedEvent(o)); err != nil {
		t.Fatalf("OnOrderPlaced: %v", err)
	}
	if len(n.msgs) != 0 {
		t.Fatal("message sent without recipient")
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	t.Parallel()

	boom := errors.New("relay unavailable")
	svc := NewService(&captureNotifier{err: boom}, time.Second, observability.Nop())

	if err := svc.OnOrderPlaced(context.Background(), domorder.NewOrderPlacedEvent(sampleOrder())); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped relay error", err)
	}
}
