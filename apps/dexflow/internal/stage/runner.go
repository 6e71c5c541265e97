package stage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage is one pipeline pass: list its candidate orders, process them, and
// return. The runner decides when each pass happens.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// ScheduledStage binds a stage to its tick interval.
type ScheduledStage struct {
	Stage    Stage
	Interval time.Duration
}

// Runner drives each stage on its own ticker. A stage error is logged and
// the stage retried on its next tick; one stage's failure never stalls the
// others.
type Runner struct {
	stages      []ScheduledStage
	tickTimeout time.Duration
	logger      *zap.Logger
}

func NewRunner(stages []ScheduledStage, tickTimeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		stages:      stages,
		tickTimeout: tickTimeout,
		logger:      logger,
	}
}

// Start blocks until ctx is cancelled and every stage loop has drained.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, scheduled := range r.stages {
		wg.Add(1)
		go func(scheduled ScheduledStage) {
			defer wg.Done()
			r.stageLoop(ctx, scheduled)
		}(scheduled)
	}
	wg.Wait()
}

func (r *Runner) stageLoop(ctx context.Context, scheduled ScheduledStage) {
	r.logger.Info("Starting stage loop",
		zap.String("stage", scheduled.Stage.Name()),
		zap.Duration("interval", scheduled.Interval))

	ticker := time.NewTicker(scheduled.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping stage loop", zap.String("stage", scheduled.Stage.Name()))
			return
		case <-ticker.C:
			r.runOnce(ctx, scheduled.Stage)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, stage Stage) {
	tickCtx, cancel := context.WithTimeout(ctx, r.tickTimeout)
	defer cancel()

	if err := stage.Run(tickCtx); err != nil {
		r.logger.Error("Stage run failed",
			zap.String("stage", stage.Name()),
			zap.Error(err))
	}
}
