package jobs

import (
	"context"
	"time"

	"lostfound_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reaper hard-deletes messages both participants have hidden.
type Reaper interface {
	ReapAbandoned(ctx context.Context, grace time.Duration) (int64, error)
}

// MessageReapJob periodically clears messages nobody can see any more.
type MessageReapJob struct {
	reaper        Reaper
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewMessageReapJob creates a new MessageReapJob.
func NewMessageReapJob(reaper Reaper, logger *zap.Logger, cfg *config.Config) *MessageReapJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &MessageReapJob{
		reaper:        reaper,
		logger:        logger.Named("MessageReapJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *MessageReapJob) SetupAndStart() error {
	spec := j.cfg.MessageReapJobSchedule
	if spec == "" {
		j.logger.Warn("Message reap job schedule not defined (MESSAGE_REAP_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(spec, func() { _, _ = j.Run(context.Background()) })
	if err != nil {
		j.logger.Error("Failed to schedule message reap job", zap.String("spec", spec), zap.Error(err))
		return err
	}

	j.logger.Info("Message reap job scheduled", zap.String("spec", spec), zap.Int("job_id", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

// Run performs one reap pass.
func (j *MessageReapJob) Run(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	removed, err := j.reaper.ReapAbandoned(ctx, j.cfg.MessageReapGrace)
	if err != nil {
		j.logger.Error("Message reap job run failed", zap.Error(err))
		return 0, err
	}
	j.logger.Info("Message reap job run completed", zap.Int64("messages_removed", removed))
	return removed, nil
}

// Stop gracefully stops the cron scheduler.
func (j *MessageReapJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping message reap job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Message reap job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Message reap job scheduler stop timed out.")
	}
}
