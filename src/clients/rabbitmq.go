package clients

import (
	"fmt"

	"buildhub-client/src/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var log = logrus.StandardLogger()

// RabbitMQ is the notification broker connection. Foreground notification
// listeners are consumers on queues bound to the device's push token.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	cfg     *config.QueueConfig
}

func NewRabbitMQ(cfg *config.QueueConfig) (*RabbitMQ, error) {
	log.WithField("url", "url:"+cfg.RabbitMQ.Url).Info("Connecting to RabbitMQ...")
	conn, err := amqp.Dial(cfg.RabbitMQ.Url)
	if err != nil {
		log.WithError(err).Errorf("Failed to connect to RabbitMQ: %v", err)
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		log.WithError(err).Errorf("Failed to open a channel: %v", err)
		return nil, err
	}

	log.Infof("Connected to RabbitMQ at %s", cfg.RabbitMQ.Url)

	return &RabbitMQ{
		Conn:    conn,
		Channel: channel,
		cfg:     cfg,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			log.WithError(err).Error("Failed to close RabbitMQ channel")
			return err
		}
		log.Info("RabbitMQ channel closed")
	}

	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			log.WithError(err).Error("Failed to close RabbitMQ connection")
			return err
		}
		log.Info("RabbitMQ connection closed")
	}

	return nil
}

// SetupExchange declares the notifications exchange. Idempotent.
func (r *RabbitMQ) SetupExchange() error {
	err := r.Channel.ExchangeDeclare(
		r.cfg.RabbitMQ.Exchange,
		r.cfg.RabbitMQ.ExchangeType,
		r.cfg.RabbitMQ.Durable,
		r.cfg.RabbitMQ.AutoDelete,
		r.cfg.RabbitMQ.Internal,
		r.cfg.RabbitMQ.NoWait,
		nil,
	)

	if err != nil {
		return fmt.Errorf("failed to declare exchange: %v", err)
	}

	return nil
}

// Subscribe declares a queue bound to the exchange under the device token's
// routing key and returns its delivery channel plus a cancel function. The
// cancel function is the matching removal for the listener installation.
func (r *RabbitMQ) Subscribe(queueName, deviceToken string) (<-chan amqp.Delivery, func() error, error) {
	routingKey := queueName + "." + deviceToken

	queue, err := r.Channel.QueueDeclare(
		routingKey,
		r.cfg.RabbitMQ.Durable,
		r.cfg.RabbitMQ.AutoDelete,
		r.cfg.RabbitMQ.Exclusive,
		r.cfg.RabbitMQ.NoWait,
		nil,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to declare queue: %v", err)
	}

	if err := r.Channel.QueueBind(queue.Name, routingKey, r.cfg.RabbitMQ.Exchange, r.cfg.RabbitMQ.NoWait, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to bind queue: %v", err)
	}

	consumerTag := r.cfg.RabbitMQ.Consumer + "." + queue.Name
	deliveries, err := r.Channel.Consume(
		queue.Name,
		consumerTag,
		r.cfg.RabbitMQ.AutoAck,
		r.cfg.RabbitMQ.Exclusive,
		false, // no-local
		r.cfg.RabbitMQ.NoWait,
		nil,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start consumer: %v", err)
	}

	cancel := func() error {
		return r.Channel.Cancel(consumerTag, false)
	}

	return deliveries, cancel, nil
}
