package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/internal/db"
)

const retentionJobTimeout = 2 * time.Minute

// RegisterRetentionJobs registers the nightly purge of accepted, declined and
// expired invitations older than the retention window. Pending invitations are
// never touched here; expiry happens lazily on access.
func RegisterRetentionJobs(sched *Scheduler, database *db.DB, retentionDays int) error {
	if database == nil {
		return fmt.Errorf("retention jobs require database")
	}
	if retentionDays < 1 {
		return fmt.Errorf("retention window must be at least one day")
	}

	jobName := "invitation_retention"
	cronExpr := "30 3 * * *"
	jobLogger := log.With().
		Str("component", "invitation_retention_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Int("retention_days", retentionDays).
		Logger()

	_, err := sched.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		purged, err := database.Queries.PurgeTerminalInvitations(ctx, cutoff)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to purge terminal invitations")
			return
		}
		if purged > 0 {
			jobLogger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("Purged terminal invitations")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add invitation retention job: %w", err)
	}

	jobLogger.Info().Msg("Invitation retention job registered")
	return nil
}
