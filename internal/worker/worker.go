package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type DuePublisher interface {
	PublishDue(ctx context.Context) (notification.PublishReport, error)
}

type RetentionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type WorkerConfig struct {
	Publisher       DuePublisher
	Sweeper         RetentionSweeper
	PublishInterval time.Duration
	SweepInterval   time.Duration
	Logger          zerolog.Logger
}

// Worker triggers the publish and sweep jobs on fixed intervals. It is the
// in-process alternative to Temporal schedules.
type Worker struct {
	cfg    WorkerConfig
	logger zerolog.Logger
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Publisher == nil || cfg.Sweeper == nil {
		return nil, errors.New("publisher and sweeper are required")
	}
	if cfg.PublishInterval <= 0 || cfg.SweepInterval <= 0 {
		return nil, errors.New("worker intervals must be positive")
	}
	return &Worker{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "worker").Logger(),
	}, nil
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("publish_interval", w.cfg.PublishInterval).
		Dur("sweep_interval", w.cfg.SweepInterval).
		Msg("worker started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.loop(ctx, w.cfg.PublishInterval, w.publishDue)
	}()
	go func() {
		defer wg.Done()
		w.loop(ctx, w.cfg.SweepInterval, w.sweep)
	}()
	wg.Wait()

	w.logger.Info().Msg("worker stopped")
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, every time.Duration, job func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				// Logged only; the next tick retries.
				w.logger.Error().Err(err).Msg("scheduled job failed")
			}
		}
	}
}

func (w *Worker) publishDue(ctx context.Context) error {
	report, err := w.cfg.Publisher.PublishDue(ctx)
	if err != nil {
		return errors.Wrap(err, "publish due")
	}
	if report.Candidates > 0 {
		w.logger.Info().Stringer("report", report).Msg("publish due run finished")
	}
	return nil
}

func (w *Worker) sweep(ctx context.Context) error {
	if _, err := w.cfg.Sweeper.Sweep(ctx); err != nil {
		return errors.Wrap(err, "retention sweep")
	}
	return nil
}
