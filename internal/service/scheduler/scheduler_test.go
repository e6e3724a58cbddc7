package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SentiPulse/internal/domain/models"
	"SentiPulse/internal/repository"
	"SentiPulse/internal/testutil"
	"SentiPulse/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 6, 10, 31, 30, 0, time.UTC)

type fakeRunner struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeRunner) RunClosedWindows(_ context.Context, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, at)
	return 1, f.err
}

func (f *fakeRunner) LastClosedWindow(at time.Time) models.Window {
	return models.LastClosedWindow(at, 30*time.Minute, time.Minute)
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type enqueued struct {
	typ     string
	payload usecase.AggregateWindowPayload
}

type fakeQueue struct {
	jobs    []enqueued
	failAt  int
	enqueue int
}

func (q *fakeQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.enqueue++
	if q.failAt > 0 && q.enqueue == q.failAt {
		return errors.New("redis down")
	}
	q.jobs = append(q.jobs, enqueued{typ: msgType, payload: payload.(usecase.AggregateWindowPayload)})
	return nil
}

func TestNew_QueueDispatchNeedsPublisher(t *testing.T) {
	_, err := New(nil, &fakeRunner{}, nil, nil, Config{Schedule: "0 * * * * *", Dispatch: DispatchQueue})
	require.Error(t, err)

	s, err := New(nil, &fakeRunner{}, nil, nil, Config{Schedule: "0 * * * * *"})
	require.NoError(t, err)
	assert.Equal(t, DispatchDirect, s.cfg.Dispatch)
}

func TestDispatch_Direct(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(nil, runner, nil, nil, Config{Schedule: "0 * * * * *"})
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	s.Dispatch(context.Background())
	require.Equal(t, 1, runner.count())
	assert.Equal(t, now, runner.calls[0])

	runner.err = errors.New("partial failure")
	s.Dispatch(context.Background())
	assert.Equal(t, 2, runner.count())
}

func TestDispatch_Queue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	aapl := testutil.Instrument(t, db, "AAPL")
	msft := testutil.Instrument(t, db, "MSFT")
	instruments := repository.NewInstrumentRepository(db.Gorm)

	q := &fakeQueue{}
	runner := &fakeRunner{}
	s, err := New(nil, runner, instruments, q, Config{Schedule: "0 * * * * *", Dispatch: DispatchQueue})
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	s.Dispatch(context.Background())
	assert.Zero(t, runner.count())
	require.Len(t, q.jobs, 2)

	ids := map[string]bool{}
	for _, j := range q.jobs {
		assert.Equal(t, usecase.AggregateWindowType, j.typ)
		assert.Equal(t, time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC), j.payload.PeriodStart)
		assert.Equal(t, time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC), j.payload.PeriodEnd)
		ids[j.payload.InstrumentID] = true
	}
	assert.True(t, ids[aapl.ID])
	assert.True(t, ids[msft.ID])

	failing := &fakeQueue{failAt: 2}
	s.queue = failing
	n, err := s.enqueue(context.Background(), now)
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s, err := New(nil, &fakeRunner{}, nil, nil, Config{Schedule: "every so often"})
	require.NoError(t, err)
	require.Error(t, s.Start(context.Background()))
}

func TestStart_RunOnStartAndStop(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(nil, runner, nil, nil, Config{Schedule: "0 0 * * * *", RunOnStart: true})
	require.NoError(t, err)

	require.NoError(t, s.Add("@every 1h", "noop", func(context.Context) {}))
	require.Error(t, s.Add("not a spec", "bad", func(context.Context) {}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runner.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
