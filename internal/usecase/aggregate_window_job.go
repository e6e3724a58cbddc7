package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"SentiPulse/internal/domain/models"
	applogger "SentiPulse/pkg/logger"
	"SentiPulse/pkg/queue"
)

// AggregateWindowType is the queue message type of a window run.
const AggregateWindowType = "aggregate_window"

// AggregateWindowPayload identifies one window of one instrument.
type AggregateWindowPayload struct {
	InstrumentID string    `json:"instrument_id"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

// AggregateWindowJob runs queued windows through the pipeline.
type AggregateWindowJob struct {
	pipeline *Pipeline
	logger   *applogger.Logger
}

func NewAggregateWindowJob(pipeline *Pipeline, l *applogger.Logger) *AggregateWindowJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &AggregateWindowJob{pipeline: pipeline, logger: l}
}

func (j *AggregateWindowJob) Name() string { return "AggregateWindowJob" }

func (j *AggregateWindowJob) Type() string { return AggregateWindowType }

func (j *AggregateWindowJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.ParsePayload[AggregateWindowPayload](raw)
	if err != nil {
		return queue.Permanent{Err: err}
	}

	w := models.Window{Start: p.PeriodStart, End: p.PeriodEnd}
	_, _, err = j.pipeline.RunWindow(ctx, p.InstrumentID, w, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrEmptyWindow), errors.Is(err, models.ErrDuplicateWindow):
		j.logger.Debug("queued window skipped",
			applogger.String("instrument_id", p.InstrumentID),
			applogger.Time("period_end", p.PeriodEnd),
			applogger.Error(err))
		return nil
	case IsPermanent(err):
		return queue.Permanent{Err: err}
	default:
		return err
	}
}

var _ queue.Job = (*AggregateWindowJob)(nil)
