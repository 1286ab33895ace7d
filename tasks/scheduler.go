package tasks

import (
	"github.com/robfig/cron/v3"

	"github.com/arvand/learnhub/config"
	"github.com/arvand/learnhub/utils"
)

// Job is a named background job runnable on a schedule.
type Job interface {
	cron.Job
	Name() string
}

// StartScheduler wires the background jobs onto a cron runner and starts it.
// Overlapping runs of the same job are skipped rather than queued.
func StartScheduler(jobs ...Job) (*cron.Cron, error) {
	cronLogger := cron.VerbosePrintfLogger(zapPrintfAdapter{})
	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	spec := config.Get().VisitFlushSpec
	for _, job := range jobs {
		if _, err := runner.AddJob(spec, job); err != nil {
			return nil, err
		}
		if utils.Sugar != nil {
			utils.Sugar.Infow("scheduled background job", "job", job.Name(), "spec", spec)
		}
	}

	runner.Start()
	return runner, nil
}

// zapPrintfAdapter lets cron log through the global sugared logger.
type zapPrintfAdapter struct{}

func (zapPrintfAdapter) Printf(format string, args ...interface{}) {
	if utils.Sugar != nil {
		utils.Sugar.Debugf(format, args...)
	}
}
