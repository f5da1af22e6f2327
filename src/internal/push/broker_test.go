package push

import (
	"encoding/json"
	"testing"
	"time"

	"buildhub-client/src/internal/models"

	"github.com/streadway/amqp"
)

func mustDelivery(t *testing.T, n models.Notification) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal notification: %v", err)
	}
	return amqp.Delivery{Body: body}
}

func TestDecodeDeliveriesDecodesAndDiscardsMalformed(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	out := decodeDeliveries(deliveries, make(chan struct{}), "notifications.received")

	valid := mustDelivery(t, models.Notification{ID: "n1", Title: "Task assigned"})
	go func() {
		deliveries <- amqp.Delivery{Body: []byte("{not json")}
		deliveries <- valid
		close(deliveries)
	}()

	n, ok := <-out
	if !ok || n.ID != "n1" {
		t.Fatalf("notification = %+v ok=%v, malformed delivery not skipped", n, ok)
	}
	if _, ok := <-out; ok {
		t.Fatal("stream still open after deliveries closed")
	}
}

func TestDecodeDeliveriesExitsWhenConsumerStops(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	stop := make(chan struct{})
	out := decodeDeliveries(deliveries, stop, "notifications.received")

	// A delivery lands while nobody is reading the stream, pinning the
	// pump on its send. Cancelling must still release it.
	deliveries <- mustDelivery(t, models.Notification{ID: "n1"})
	close(stop)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("decode pump still running after cancel")
		}
	}
}
