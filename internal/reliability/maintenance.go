package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/database"
)

// MaintenanceJob checkpoints the WAL files, verifies database integrity and
// prunes expired cache entries. Runs hourly; each step is independent so one
// failure does not block the others.
type MaintenanceJob struct {
	brokerDB  *database.DB
	cacheDB   *database.DB
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job.
func NewMaintenanceJob(brokerDB, cacheDB *database.DB, cacheRepo *clientdata.Repository, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		brokerDB:  brokerDB,
		cacheDB:   cacheDB,
		cacheRepo: cacheRepo,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run executes one maintenance pass.
func (j *MaintenanceJob) Run() error {
	var firstErr error

	for _, db := range []*database.DB{j.brokerDB, j.cacheDB} {
		if db == nil {
			continue
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			if firstErr == nil {
				firstErr = err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
			}
		}
		cancel()
	}

	if j.cacheRepo != nil {
		if pruned, err := j.cacheRepo.PruneExpired(); err != nil {
			j.log.Error().Err(err).Msg("Cache prune failed")
			if firstErr == nil {
				firstErr = err
			}
		} else if pruned > 0 {
			j.log.Info().Int64("pruned", pruned).Msg("Pruned expired cache entries")
		}
	}

	return firstErr
}
