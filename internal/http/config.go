package http

import (
	"context"

	"github.com/sirupsen/logrus"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// AppContext outlives requests; background work started from a
	// handler (such as a rescheduled sync) is bound to it.
	AppContext context.Context

	Library   Library
	Courses   CourseLookup
	Syncer    CatalogSyncer
	Downloads DownloadManager

	// Optional
	Preferences Preferences
	Scheduler   SyncSchedule
	TaskClient  TaskQueue

	// Health checks
	Database DBPinger
	Catalog  ReachabilityChecker

	// Application info
	Version string

	Logger logrus.FieldLogger
}
