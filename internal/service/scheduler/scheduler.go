package scheduler

import (
	"context"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	"SentiPulse/internal/usecase"
	applogger "SentiPulse/pkg/logger"
	"SentiPulse/pkg/queue"

	"github.com/robfig/cron/v3"
)

const (
	DispatchDirect = "direct"
	DispatchQueue  = "queue"
)

// WindowRunner runs closed windows in process.
type WindowRunner interface {
	RunClosedWindows(ctx context.Context, now time.Time) (int, error)
	LastClosedWindow(now time.Time) models.Window
}

// Config controls when and how windows are dispatched.
type Config struct {
	Schedule   string // six-field cron spec with seconds
	Dispatch   string
	RunOnStart bool
}

// Scheduler triggers the window pipeline on a cron schedule, either calling it directly
// or enqueueing one job per instrument.
type Scheduler struct {
	cron        *cron.Cron
	logger      *applogger.Logger
	runner      WindowRunner
	instruments domrepo.InstrumentStore
	queue       queue.Publisher
	cfg         Config
	now         func() time.Time
	cancel      context.CancelFunc
}

func New(l *applogger.Logger, runner WindowRunner, instruments domrepo.InstrumentStore, q queue.Publisher, cfg Config) (*Scheduler, error) {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Dispatch == "" {
		cfg.Dispatch = DispatchDirect
	}
	if cfg.Dispatch == DispatchQueue && q == nil {
		return nil, fmt.Errorf("queue dispatch needs a queue publisher")
	}
	cl := cronLogger{l: l}
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		logger:      l,
		runner:      runner,
		instruments: instruments,
		queue:       q,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

func (s *Scheduler) Name() string { return "scheduler" }

// Add registers an extra periodic task on the same cron.
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("cron task", applogger.String("task", name))
		fn(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.Dispatch(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("window schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		applogger.String("schedule", s.cfg.Schedule),
		applogger.String("dispatch", s.cfg.Dispatch))

	if s.cfg.RunOnStart {
		go s.Dispatch(runCtx)
	}
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch runs or enqueues the last closed window of every instrument.
func (s *Scheduler) Dispatch(ctx context.Context) {
	now := s.now()
	if s.cfg.Dispatch == DispatchQueue {
		n, err := s.enqueue(ctx, now)
		if err != nil {
			s.logger.Error("window enqueue failed", applogger.Int("enqueued", n), applogger.Error(err))
			return
		}
		s.logger.Info("windows enqueued", applogger.Int("enqueued", n))
		return
	}

	created, err := s.runner.RunClosedWindows(ctx, now)
	if err != nil {
		s.logger.Error("window run finished with errors", applogger.Int("created", created), applogger.Error(err))
		return
	}
	s.logger.Info("window run finished", applogger.Int("created", created))
}

func (s *Scheduler) enqueue(ctx context.Context, now time.Time) (int, error) {
	insts, err := s.instruments.List(ctx)
	if err != nil {
		return 0, err
	}
	w := s.runner.LastClosedWindow(now)
	n := 0
	for _, inst := range insts {
		err := s.queue.Enqueue(ctx, usecase.AggregateWindowType, usecase.AggregateWindowPayload{
			InstrumentID: inst.ID,
			PeriodStart:  w.Start,
			PeriodEnd:    w.End,
		})
		if err != nil {
			return n, fmt.Errorf("enqueue %s: %w", inst.Ticker, err)
		}
		n++
	}
	return n, nil
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
