package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/testutil"
	pkgkafka "SentiPulse/pkg/kafka"
	"SentiPulse/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWindowJob(t *testing.T) {
	e := newEnv(t)
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)
	testutil.Message(t, e.db, inst, src, base.Add(time.Minute), "", testutil.S("news", 0.5, 1))
	job := NewAggregateWindowJob(e.pipeline, nil)
	assert.Equal(t, AggregateWindowType, job.Type())

	raw, err := json.Marshal(AggregateWindowPayload{InstrumentID: inst.ID, PeriodStart: base, PeriodEnd: base.Add(30 * time.Minute)})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), raw))
	// a redelivered message is a no-op
	require.NoError(t, job.Handle(context.Background(), raw))
	assert.Equal(t, 1, e.metrics.Count("window:created"))

	var perm queue.Permanent
	err = job.Handle(context.Background(), json.RawMessage(`{"instrument_id":`))
	assert.True(t, errors.As(err, &perm))

	raw, _ = json.Marshal(AggregateWindowPayload{InstrumentID: "missing", PeriodStart: base, PeriodEnd: base.Add(30 * time.Minute)})
	err = job.Handle(context.Background(), raw)
	assert.True(t, errors.As(err, &perm))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestKafkaIngestHandler(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(10 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)
	h := NewKafkaIngestHandler("sentipulse.ingest", e.ingest, e.metrics)
	assert.Equal(t, "sentipulse.ingest", h.Topic())

	raw, err := json.Marshal(ingestRequest(inst, src, base.Add(5*time.Minute)))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Equal(t, 1, e.metrics.Count("ingested:kafka"))

	var perm *pkgkafka.PermanentError
	err = h.Handle(context.Background(), []byte("not json"))
	assert.True(t, errors.As(err, &perm))
	assert.Equal(t, 1, e.metrics.Count("error:consumer_unmarshal"))

	raw, _ = json.Marshal(ingestRequest(inst, src, base.Add(-time.Hour)))
	err = h.Handle(context.Background(), raw)
	assert.True(t, errors.As(err, &perm))
	assert.ErrorIs(t, err, models.ErrWindowClosed)
}
