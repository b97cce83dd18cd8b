package scheduler

import (
	"context"

	"github.com/sirupsen/logrus"
)

// StartupSync runs one unforced catalog sync in the background. The returned
// channel receives the run's error (nil on success or when the time gate
// skipped it) and is then closed. Callers that do not care may drop it.
func StartupSync(ctx context.Context, syncer Syncer, log logrus.FieldLogger) <-chan error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	errc := make(chan error, 1)

	go func() {
		defer close(errc)

		result := syncer.SyncCatalog(ctx, false)
		err := result.Err()
		if err != nil {
			log.WithError(err).Warn("Startup catalog sync failed")
		} else if !result.Skipped {
			log.WithFields(logrus.Fields{
				"added":   result.CoursesAdded,
				"updated": result.CoursesUpdated,
				"failed":  result.CoursesFailed,
			}).Info("Startup catalog sync completed")
		}
		errc <- err
	}()

	return errc
}
