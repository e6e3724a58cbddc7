package repository

import (
	"context"
	"errors"
	"testing"

	"SentiPulse/internal/domain/models"
	pkgkafka "SentiPulse/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type producerStub struct {
	topic    string
	messages []pkgkafka.Message
}

func (p *producerStub) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	p.topic = topic
	p.messages = append(p.messages, messages...)
	return nil
}

type inserterStub struct {
	query string
	rows  [][]interface{}
	err   error
}

func (i *inserterStub) InsertBatch(_ context.Context, query string, rows [][]interface{}) error {
	i.query = query
	i.rows = append(i.rows, rows...)
	return i.err
}

func TestKafkaEventSinkKeysByTicker(t *testing.T) {
	p := &producerStub{}
	sink := NewKafkaEventSink(p, "sentipulse.events")

	require.NoError(t, sink.Deliver(context.Background(), models.NewEvent(models.EventKPIsUpdate, "AAPL", nil)))
	assert.Equal(t, "sentipulse.events", p.topic)
	require.Len(t, p.messages, 1)
	assert.Equal(t, []byte("AAPL"), p.messages[0].Key)
	assert.Equal(t, models.EventKPIsUpdate, p.messages[0].Headers["event"])
}

func TestClickHouseArchiveStoresTrendPoints(t *testing.T) {
	ins := &inserterStub{}
	archive := NewClickHouseArchive(ins, "sentipulse", nil)
	ctx := context.Background()

	require.NoError(t, archive.Deliver(ctx, models.NewEvent(models.EventTableUpdate, "AAPL", nil)))
	assert.Empty(t, ins.rows)

	point := models.TrendPoint{Time: t0, AggregatedScore: 0.5, Score: 75, Rating: 4}
	require.NoError(t, archive.Deliver(ctx, models.NewEvent(models.EventTimeseriesNew, "AAPL", point)))
	require.Len(t, ins.rows, 1)
	assert.Contains(t, ins.query, "sentipulse.sentiment_trend")
	assert.Equal(t, "AAPL", ins.rows[0][0])
	assert.Equal(t, uint8(4), ins.rows[0][4])

	assert.Error(t, archive.Deliver(ctx, models.NewEvent(models.EventTimeseriesNew, "AAPL", "garbage")))

	ins.err = errors.New("down")
	assert.Error(t, archive.Deliver(ctx, models.NewEvent(models.EventTimeseriesNew, "AAPL", point)))
}
