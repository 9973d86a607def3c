package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationReconcileCheckpointCounters = "2026-08-12_reconcile_batch_checkpoint_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationReconcileCheckpointCounters, apply: reconcileCheckpointCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// reconcileCheckpointCounters rewrites each batch's denormalized checkpoint
// counter from the checkpoint log. The counter is maintained atomically during
// ingestion, but a batch-update failure after a successful append can leave it
// behind by one; the recount restores the invariant.
func reconcileCheckpointCounters(db *gorm.DB) error {
	return db.Exec(
		"UPDATE batches SET checkpoints = (" +
			"SELECT COUNT(*) FROM checkpoints WHERE checkpoints.batch_id = batches.batch_id)",
	).Error
}
