package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/courseshelf/internal/catalog"
	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/database"
	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/http"
	"github.com/mrlokans/courseshelf/internal/library"
	"github.com/mrlokans/courseshelf/internal/scheduler"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
	"github.com/mrlokans/courseshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var (
	_ catalogsync.Store   = (*database.Database)(nil)
	_ downloads.Store     = (*database.Database)(nil)
	_ library.Store       = (*database.Database)(nil)
	_ settingsstore.Store = (*database.Database)(nil)
	_ tasks.CourseLookup  = (*database.Database)(nil)
	_ http.CourseLookup   = (*database.Database)(nil)
	_ http.DBPinger       = (*database.Database)(nil)
)

// =============================================================================
// Remote Catalog
// =============================================================================

var (
	_ catalog.Source           = (*catalog.FirebaseClient)(nil)
	_ downloads.Locator        = (*catalog.FirebaseClient)(nil)
	_ http.ReachabilityChecker = (*catalog.FirebaseClient)(nil)
	_ catalog.Resolver         = catalog.DirectResolver{}
	_ catalog.Resolver         = catalog.FirebaseStorageResolver{}
	_ catalog.Resolver         = (*catalog.GCSSignedResolver)(nil)
	_ catalog.Connectivity     = (*catalog.InterfaceConnectivity)(nil)
	_ catalog.Connectivity     = catalog.StaticConnectivity{}
)

// =============================================================================
// Sync
// =============================================================================

var (
	_ scheduler.Syncer       = (*catalogsync.Reconciler)(nil)
	_ tasks.CatalogSyncer    = (*catalogsync.Reconciler)(nil)
	_ http.CatalogSyncer     = (*catalogsync.Reconciler)(nil)
	_ http.SyncSchedule      = (*scheduler.CatalogSyncScheduler)(nil)
	_ scheduler.SyncSettings = (*settingsstore.SettingsStore)(nil)
)

// =============================================================================
// Downloads
// =============================================================================

var (
	_ downloads.Fetcher      = (*downloads.HTTPFetcher)(nil)
	_ tasks.Downloader       = (*downloads.Engine)(nil)
	_ http.DownloadManager   = (*downloads.Engine)(nil)
	_ library.DirectorySizer = (*downloads.Engine)(nil)
)

// =============================================================================
// API Surface
// =============================================================================

var (
	_ http.Library     = (*library.Service)(nil)
	_ http.Preferences = (*settingsstore.SettingsStore)(nil)
	_ http.TaskQueue   = (*tasks.Client)(nil)
)
