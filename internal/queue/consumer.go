package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ActivityLog appends one line per activity event to a file.
type ActivityLog struct {
    path string
}

func NewActivityLog(path string) *ActivityLog {
    if path == "" {
        path = filepath.Join("logs", "activity.log")
    }
    return &ActivityLog{path: path}
}

// Handle decodes a message body and appends it to the log.
func (a *ActivityLog) Handle(body []byte) error {
    var ev ActivityEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.VisitorID == "" {
        return errors.New("event without type or visitor")
    }
    if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev ActivityEvent) string {
    switch ev.Type {
    case EventZoneVisited:
        return fmt.Sprintf("[%s] Zone visited | id=%s | visitor=%s | zone=%s | name=%q\n",
            ev.OccurredAt, ev.ID, ev.VisitorID, ev.ZoneCode, ev.ZoneName)
    case EventPrizeEntered:
        return fmt.Sprintf("[%s] Prize entry | id=%s | visitor=%s\n", ev.OccurredAt, ev.ID, ev.VisitorID)
    case EventWinnerDrawn:
        return fmt.Sprintf("[%s] Winner drawn | id=%s | visitor=%s\n", ev.OccurredAt, ev.ID, ev.VisitorID)
    default:
        return fmt.Sprintf("[%s] %s | id=%s | visitor=%s\n", ev.OccurredAt, ev.Type, ev.ID, ev.VisitorID)
    }
}

// Consumer reads the activity queue and hands each message to an
// ActivityLog.  Run reconnects with exponential backoff until ctx is done.
type Consumer struct {
    url   string
    queue string
    sink  *ActivityLog
    log   *zap.Logger
}

func NewConsumer(url string, sink *ActivityLog, log *zap.Logger) *Consumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, queue: ActivityQueue, sink: sink, log: log}
}

// Run blocks until ctx is cancelled.  Broker failures are logged and
// retried; they never end the loop.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("activity-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("activity-consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("activity-consumer: set QoS failed", zap.Error(err))
    }
    if err := declare(ch, c.queue); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.log.Info("activity-consumer: listening", zap.String("queue", c.queue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.sink.Handle(d.Body); err != nil {
                c.log.Error("activity-consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
