// Package events relays outbox rows to Kafka.
package events

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/metrics"
)

type outbox interface {
	FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher polls the outbox and writes every pending event to the topic
// named after its event type, keyed by aggregate id.
type Publisher struct {
	DB        txBeginner
	Outbox    outbox
	Brokers   []string
	PollEvery time.Duration
	BatchSize int
	Logger    *slog.Logger

	writer messageWriter
}

// SplitBrokers turns "a:9092, b:9092" into a broker list.
func SplitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.Brokers) == 0 && p.writer == nil {
		p.Logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	if p.PollEvery <= 0 {
		p.PollEvery = 2 * time.Second
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:                   kafka.TCP(p.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	}
	defer p.writer.Close()

	ticker := time.NewTicker(p.PollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.publishBatch(ctx)
			if err != nil {
				metrics.OutboxErrors.Inc()
				p.Logger.Error("outbox publish failed", "err", err)
				continue
			}
			if n > 0 {
				metrics.OutboxPublished.Add(float64(n))
				p.Logger.Debug("outbox published", "events", n)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) (int, error) {
	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.Outbox.FetchUnpublished(ctx, tx, p.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, toMessage(ctx, r))
		ids = append(ids, r.ID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.Outbox.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(records), tx.Commit(ctx)
}

func toMessage(ctx context.Context, ev domain.OutboxEvent) kafka.Message {
	carrier := &headerCarrier{headers: []kafka.Header{
		{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
		{Key: "event_type", Value: []byte(ev.EventType)},
		{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
	}}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return kafka.Message{
		Topic:   ev.EventType,
		Key:     []byte(ev.AggregateID),
		Value:   ev.Payload,
		Headers: carrier.headers,
		Time:    ev.CreatedAt,
	}
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
