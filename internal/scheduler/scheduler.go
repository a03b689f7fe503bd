package scheduler

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Scheduler runs the app's background jobs on cron schedules. Construct one
// with New, register jobs, then Start it; Stop waits for running jobs.
type Scheduler struct {
	inner    gocron.Scheduler
	stopOnce sync.Once
	stopErr  error
}

func New() (*Scheduler, error) {
	inner, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Background job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner}, nil
}

func (s *Scheduler) Start() {
	log.Info().Msg("Scheduler starting")
	s.inner.Start()
}

// Stop shuts the scheduler down, letting in-flight jobs finish. Safe to call
// more than once.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.inner.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron job. The task is wrapped so every run is logged
// under the job's name.
func (s *Scheduler) AddJob(name, cronExpr string, task func(), opts ...gocron.JobOption) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	wrapped := func() {
		jobLogger.Debug().Msg("Background job started")
		task()
		jobLogger.Debug().Msg("Background job completed")
	}

	jobOpts := append([]gocron.JobOption{gocron.WithName(name)}, opts...)
	job, err := s.inner.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped),
		jobOpts...,
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register background job")
		return nil, err
	}
	jobLogger.Info().Msg("Background job registered")
	return job, nil
}
