package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends activity events to RabbitMQ.  Each call dials its own
// connection; event volume is a few per visitor so pooling is not needed.
// Errors are logged and returned so callers can ignore them without
// interrupting the request.
type Publisher struct {
    url   string
    queue string
    log   *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, queue: ActivityQueue, log: log}
}

// Publish marshals ev and routes it to the activity queue as a persistent
// message.
func (p *Publisher) Publish(ctx context.Context, ev ActivityEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declare(ch, p.queue); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.String("type", ev.Type), zap.Error(err))
        return err
    }
    return nil
}

// declare ensures the durable queue exists.  It is idempotent.
func declare(ch *amqp.Channel, name string) error {
    _, err := ch.QueueDeclare(
        name,
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,
    )
    return err
}
