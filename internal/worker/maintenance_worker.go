package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is one maintenance pass returning the number of rows it touched.
type Sweeper func(ctx context.Context) (int64, error)

// MaintenanceJob pairs a sweep with its cron schedule.
type MaintenanceJob struct {
	Name     string
	Schedule string
	Run      Sweeper
}

// MaintenanceWorker runs periodic sweeps such as quote expiry and media retention.
type MaintenanceWorker struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// NewMaintenanceWorker schedules jobs. Each run gets its own context bounded by timeout.
func NewMaintenanceWorker(logger *zap.Logger, timeout time.Duration, jobs ...MaintenanceJob) (*MaintenanceWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	w := &MaintenanceWorker{cron: cron.New(), logger: logger, timeout: timeout}
	for _, job := range jobs {
		job := job
		if _, err := w.cron.AddFunc(job.Schedule, func() { w.RunOnce(context.Background(), job) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	return w, nil
}

// RunOnce executes a single job and logs its outcome.
func (w *MaintenanceWorker) RunOnce(ctx context.Context, job MaintenanceJob) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	touched, err := job.Run(ctx)
	if err != nil {
		w.logger.Error("maintenance job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	w.logger.Debug("maintenance job finished", zap.String("job", job.Name), zap.Int64("rows", touched))
}

// Start begins the schedule.
func (w *MaintenanceWorker) Start() {
	w.cron.Start()
}

// Stop halts scheduling and waits for running jobs.
func (w *MaintenanceWorker) Stop() {
	<-w.cron.Stop().Done()
}
