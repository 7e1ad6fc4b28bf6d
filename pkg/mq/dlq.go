package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "events.dlq"
)

// DeclareDLQ declares the dead letter exchange and a "<queue>.dlq" queue bound to
// it. Messages rejected without requeue on queueName end up there.
func DeclareDLQ(ch *amqp091.Channel, queueName string) (amqp091.Queue, error) {
	if err := ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName+".dlq",
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#", DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return q, nil
}

// deadLetterArgs routes rejected messages of a work queue to the DLQ exchange.
func deadLetterArgs() amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange": DLQExchangeName,
	}
}
