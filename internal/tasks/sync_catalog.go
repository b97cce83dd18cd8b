package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/entities"
)

// CatalogSyncer is satisfied by *catalogsync.Reconciler.
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context, force bool) catalogsync.Result
	SyncCategory(ctx context.Context, category entities.CourseCategory) catalogsync.Result
	SyncLevel(ctx context.Context, level entities.CourseLevel) catalogsync.Result
}

// SyncCatalogTask runs a full catalog sync.
type SyncCatalogTask struct {
	Force bool `json:"force"`
}

func (t SyncCatalogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_catalog",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention:   retainDay(),
	}
}

// SyncCatalogProcessor returns an error for unsuccessful results so backlite
// retries them, including runs rejected because another sync was in flight.
func SyncCatalogProcessor(syncer CatalogSyncer, log logrus.FieldLogger) backlite.QueueProcessor[SyncCatalogTask] {
	return func(ctx context.Context, task SyncCatalogTask) error {
		if syncer == nil {
			return fmt.Errorf("catalog syncer not configured")
		}
		result := syncer.SyncCatalog(ctx, task.Force)
		logResult(log, "sync_catalog", result)
		return result.Err()
	}
}

func NewSyncCatalogQueue(syncer CatalogSyncer, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(SyncCatalogProcessor(syncer, log))
}

// SyncCategoryTask refreshes the courses of one category.
type SyncCategoryTask struct {
	Category string `json:"category"`
}

func (t SyncCategoryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_category",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention:   retainDay(),
	}
}

func SyncCategoryProcessor(syncer CatalogSyncer, log logrus.FieldLogger) backlite.QueueProcessor[SyncCategoryTask] {
	return func(ctx context.Context, task SyncCategoryTask) error {
		if syncer == nil {
			return fmt.Errorf("catalog syncer not configured")
		}
		category := entities.ParseCategory(task.Category)
		result := syncer.SyncCategory(ctx, category)
		logResult(log.WithField("category", category), "sync_category", result)
		return result.Err()
	}
}

func NewSyncCategoryQueue(syncer CatalogSyncer, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(SyncCategoryProcessor(syncer, log))
}

// SyncLevelTask refreshes the courses of one level.
type SyncLevelTask struct {
	Level string `json:"level"`
}

func (t SyncLevelTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_level",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention:   retainDay(),
	}
}

func SyncLevelProcessor(syncer CatalogSyncer, log logrus.FieldLogger) backlite.QueueProcessor[SyncLevelTask] {
	return func(ctx context.Context, task SyncLevelTask) error {
		if syncer == nil {
			return fmt.Errorf("catalog syncer not configured")
		}
		level, err := entities.ParseLevel(task.Level)
		if err != nil {
			// Retrying cannot fix a bad level.
			log.WithError(err).Warn("[TASK] sync_level: dropped")
			return nil
		}
		result := syncer.SyncLevel(ctx, level)
		logResult(log.WithField("level", level), "sync_level", result)
		return result.Err()
	}
}

func NewSyncLevelQueue(syncer CatalogSyncer, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(SyncLevelProcessor(syncer, log))
}

func logResult(log logrus.FieldLogger, name string, result catalogsync.Result) {
	entry := log.WithFields(logrus.Fields{
		"added":   result.CoursesAdded,
		"updated": result.CoursesUpdated,
		"failed":  result.CoursesFailed,
	})
	if result.Success {
		entry.Infof("[TASK] %s: %s", name, resultSummary(result))
		return
	}
	entry.WithField("reason", result.Message).Warnf("[TASK] %s: failed", name)
}

func resultSummary(result catalogsync.Result) string {
	if result.Skipped {
		return "skipped"
	}
	return "completed"
}
