package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"petshop-backend/internal/domain"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092 , ,b:9092"))
	assert.Empty(t, SplitBrokers(""))
}

func TestToMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	msg := toMessage(ctx, domain.OutboxEvent{
		ID:            12,
		AggregateType: "appointment",
		AggregateID:   "55",
		EventType:     "appointment.completed",
		Payload:       []byte(`{"id":55}`),
		CreatedAt:     at,
	})

	assert.Equal(t, "appointment.completed", msg.Topic)
	assert.Equal(t, []byte("55"), msg.Key)
	assert.JSONEq(t, `{"id":55}`, string(msg.Value))
	assert.Equal(t, at, msg.Time)

	c := &headerCarrier{headers: msg.Headers}
	assert.Equal(t, "12", c.Get("event_id"))
	assert.Equal(t, "appointment.completed", c.Get("event_type"))
	assert.Equal(t, "appointment", c.Get("aggregate_type"))
	require.NotEmpty(t, c.Get("traceparent"))
	assert.Contains(t, c.Get("traceparent"), sc.TraceID().String())
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	c := &headerCarrier{}
	c.Set("k", "1")
	c.Set("k", "2")
	assert.Equal(t, []string{"k"}, c.Keys())
	assert.Equal(t, "2", c.Get("k"))
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct{ tx *fakeTx }

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.tx = &fakeTx{}
	return d.tx, nil
}

type fakeOutbox struct {
	pending []domain.OutboxEvent
	marked  []int64
	limit   int
}

func (o *fakeOutbox) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]domain.OutboxEvent, error) {
	o.limit = limit
	return o.pending, nil
}

func (o *fakeOutbox) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	o.marked = append(o.marked, ids...)
	return nil
}

type fakeWriter struct {
	fail error
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.fail != nil {
		return w.fail
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func pendingEvents() []domain.OutboxEvent {
	return []domain.OutboxEvent{
		{ID: 7, AggregateType: "appointment", AggregateID: "55", EventType: "appointment.completed", Payload: []byte(`{"id":55}`)},
		{ID: 8, AggregateType: "transaction", AggregateID: "3", EventType: "transaction.created", Payload: []byte(`{"id":3}`)},
	}
}

func TestPublisher_PublishBatch(t *testing.T) {
	db, ob, w := &fakeDB{}, &fakeOutbox{pending: pendingEvents()}, &fakeWriter{}
	p := &Publisher{DB: db, Outbox: ob, BatchSize: 10, writer: w}

	n, err := p.publishBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 10, ob.limit)
	assert.Equal(t, []int64{7, 8}, ob.marked)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "appointment.completed", w.msgs[0].Topic)
	assert.Equal(t, "transaction.created", w.msgs[1].Topic)
	assert.True(t, db.tx.committed)
}

func TestPublisher_PublishBatch_WriteFailureLeavesRowsPending(t *testing.T) {
	db, ob := &fakeDB{}, &fakeOutbox{pending: pendingEvents()}
	p := &Publisher{DB: db, Outbox: ob, BatchSize: 10, writer: &fakeWriter{fail: errors.New("kafka: leader not available")}}

	n, err := p.publishBatch(context.Background())

	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ob.marked)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestPublisher_PublishBatch_Empty(t *testing.T) {
	db, w := &fakeDB{}, &fakeWriter{}
	p := &Publisher{DB: db, Outbox: &fakeOutbox{}, BatchSize: 10, writer: w}

	n, err := p.publishBatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Empty(t, w.msgs)
	assert.True(t, db.tx.committed)
}
