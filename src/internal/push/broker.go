package push

import (
	"encoding/json"
	"sync"

	"buildhub-client/src/clients"
	"buildhub-client/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Broker delivers foreground notifications for a registered device token.
// Subscribe returns the delivery stream and a cancel function; cancel is the
// 1:1 matching removal for the installed listener.
type Broker interface {
	Subscribe(queue, deviceToken string) (<-chan models.Notification, func() error, error)
}

type amqpBroker struct {
	mq *clients.RabbitMQ
}

// NewAMQPBroker adapts the RabbitMQ client into a notification broker,
// decoding delivery bodies into notification payloads.
func NewAMQPBroker(mq *clients.RabbitMQ) Broker {
	return &amqpBroker{mq: mq}
}

func (b *amqpBroker) Subscribe(queue, deviceToken string) (<-chan models.Notification, func() error, error) {
	deliveries, cancel, err := b.mq.Subscribe(queue, deviceToken)
	if err != nil {
		return nil, nil, err
	}

	stop := make(chan struct{})
	out := decodeDeliveries(deliveries, stop, queue)

	// Cancel must also release a pump blocked on a send: the consumer
	// stops reading before the AMQP consumer is cancelled, and a delivery
	// decoded in that window would otherwise pin the goroutine forever.
	var once sync.Once
	return out, func() error {
		once.Do(func() { close(stop) })
		return cancel()
	}, nil
}

func decodeDeliveries(deliveries <-chan amqp.Delivery, stop <-chan struct{}, queue string) <-chan models.Notification {
	out := make(chan models.Notification)
	go func() {
		defer close(out)
		for d := range deliveries {
			var n models.Notification
			if err := json.Unmarshal(d.Body, &n); err != nil {
				logrus.WithError(err).WithField("queue", queue).Warn("Discarding malformed notification")
				continue
			}
			select {
			case out <- n:
			case <-stop:
				return
			}
		}
	}()
	return out
}
