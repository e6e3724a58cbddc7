package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	applogger "SentiPulse/pkg/logger"
)

// ErrBufferFull is returned by Publish when the event buffer has no room.
var ErrBufferFull = errors.New("event buffer full")

// EventPipeline sits between the use cases and the event sinks. Publish only buffers;
// a single worker delivers events in order to every sink with per-sink retries.
type EventPipeline struct {
	sinks      []domrepo.EventSink
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	bufSize    int
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration

	bufCh   chan models.Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets delivery attempts after the first failure and the backoff bounds.
func WithRetry(max int, backoffMin, backoffMax time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if max >= 0 {
			p.maxRetries = max
		}
		if backoffMin > 0 {
			p.backoffMin = backoffMin
		}
		if backoffMax > 0 {
			p.backoffMax = backoffMax
		}
	}
}

// WithSinks adds downstream sinks; nil sinks are ignored.
func WithSinks(sinks ...domrepo.EventSink) PipelineOption {
	return func(p *EventPipeline) {
		for _, s := range sinks {
			if s != nil {
				p.sinks = append(p.sinks, s)
			}
		}
	}
}

func NewEventPipeline(metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		metrics:    metrics,
		logger:     l,
		bufSize:    1024,
		maxRetries: 3,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = applogger.Nop()
	}
	p.bufCh = make(chan models.Event, p.bufSize)
	return p
}

var _ domrepo.EventPublisher = (*EventPipeline)(nil)

func (p *EventPipeline) Name() string { return "event-pipeline" }

// Start launches the delivery worker.
func (p *EventPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	p.started = true
	go p.run(context.WithoutCancel(ctx))
	return nil
}

// Stop lets the worker drain buffered events until ctx expires.
func (p *EventPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish buffers e without blocking.
func (p *EventPipeline) Publish(_ context.Context, e models.Event) error {
	select {
	case p.bufCh <- e:
		return nil
	default:
		p.metrics.RecordEvent(e.Name, "buffer", "dropped")
		return ErrBufferFull
	}
}

func (p *EventPipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	for {
		select {
		case e := <-p.bufCh:
			p.deliver(ctx, e)
		case <-p.stopCh:
			for {
				select {
				case e := <-p.bufCh:
					p.deliver(ctx, e)
				default:
					return
				}
			}
		}
	}
}

func (p *EventPipeline) deliver(ctx context.Context, e models.Event) {
	for _, sink := range p.sinks {
		start := time.Now()
		if err := p.deliverWithRetry(ctx, sink, e); err != nil {
			p.metrics.RecordEvent(e.Name, sink.Name(), "failed")
			p.metrics.RecordError("event_" + sink.Name())
			p.logger.Error("event delivery failed",
				applogger.String("event", e.Name),
				applogger.String("ticker", e.Ticker),
				applogger.String("sink", sink.Name()),
				applogger.Error(err))
			continue
		}
		p.metrics.RecordEvent(e.Name, sink.Name(), "delivered")
		p.metrics.RecordLatency("event_"+sink.Name(), time.Since(start).Seconds())
	}
}

func (p *EventPipeline) deliverWithRetry(ctx context.Context, sink domrepo.EventSink, e models.Event) error {
	backoff := p.backoffMin
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err = sink.Deliver(ctx, e); err == nil {
			return nil
		}
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-p.stopCh:
			// shutting down: one more try without waiting
		}
		if backoff < p.backoffMax {
			backoff *= 2
			if backoff > p.backoffMax {
				backoff = p.backoffMax
			}
		}
	}
	return err
}
