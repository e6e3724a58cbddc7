package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SentiPulse/internal/domain/models"
	"SentiPulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name     string
	failures int

	mu     sync.Mutex
	calls  int
	events []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("sink down")
	}
	s.events = append(s.events, e.Name)
	return nil
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestEventPipelineDeliversInOrder(t *testing.T) {
	metrics := testutil.NewMetrics()
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b", failures: 1}
	p := NewEventPipeline(metrics, nil,
		WithSinks(a, nil, b),
		WithRetry(2, time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, p.Start(context.Background()))

	names := []string{models.EventTimeseriesNew, models.EventKPIsUpdate, models.EventTableUpdate}
	for _, n := range names {
		require.NoError(t, p.Publish(context.Background(), models.NewEvent(n, "AAPL", nil)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))

	assert.Equal(t, names, a.delivered())
	assert.Equal(t, names, b.delivered())
	assert.Equal(t, 1, metrics.Count("event:"+models.EventTimeseriesNew+":b:delivered"))
}

func TestEventPipelineGivesUpAfterRetries(t *testing.T) {
	metrics := testutil.NewMetrics()
	bad := &recordingSink{name: "bad", failures: 100}
	good := &recordingSink{name: "good"}
	p := NewEventPipeline(metrics, nil,
		WithSinks(bad, good),
		WithRetry(1, time.Millisecond, time.Millisecond),
	)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Publish(context.Background(), models.NewEvent(models.EventNewsNew, "AAPL", nil)))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 2, bad.calls)
	assert.Equal(t, []string{models.EventNewsNew}, good.delivered())
	assert.Equal(t, 1, metrics.Count("event:"+models.EventNewsNew+":bad:failed"))
	assert.Equal(t, 1, metrics.Count("error:event_bad"))
}

func TestEventPipelineBufferFull(t *testing.T) {
	metrics := testutil.NewMetrics()
	p := NewEventPipeline(metrics, nil, WithBufferSize(1))

	require.NoError(t, p.Publish(context.Background(), models.NewEvent(models.EventNewsNew, "AAPL", nil)))
	err := p.Publish(context.Background(), models.NewEvent(models.EventNewsNew, "AAPL", nil))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1, metrics.Count("event:"+models.EventNewsNew+":buffer:dropped"))
}
