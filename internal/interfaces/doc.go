// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see which concrete type backs each one.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - catalogsync.Store: Course upserts and the last_sync marker (internal/catalogsync/reconciler.go)
//   - downloads.Store: Download state and progress rows (internal/downloads/engine.go)
//   - library.Store: Browse, search and statistics queries (internal/library/service.go)
//   - settingsstore.Store: Preference rows (internal/settingsstore/settingsstore.go)
//
// All of them are implemented by *database.Database.
//
// ## Remote Catalog Interfaces
//
//   - catalog.Source: Firebase Realtime Database reads (internal/catalog/source.go)
//   - catalog.Resolver: Stored file path to download URL (internal/catalog/resolver.go)
//   - catalog.Connectivity: Network and metered-link detection (internal/catalog/connectivity.go)
//
// ## Download Interfaces
//
//   - downloads.Fetcher: Streams one file to disk (internal/downloads/fetcher.go)
//   - downloads.Locator: Resolves a course file before a transfer (internal/downloads/engine.go)
//
// ## API Interfaces
//
// internal/http/stores.go declares the narrow surfaces the handlers depend on:
// Library, CatalogSyncer, SyncSchedule, DownloadManager, Preferences,
// DBPinger and ReachabilityChecker. internal/http/tasks.go adds TaskQueue.
//
// # Adding a New Catalog Backend
//
// To read the catalog from somewhere other than Firebase:
//
//  1. Implement catalog.Source in internal/catalog/
//
//     type StaticSource struct {
//         records []catalog.Record
//     }
//
//     func (s *StaticSource) FetchAll(ctx context.Context) ([]catalog.Record, error)
//
//     var _ catalog.Source = (*StaticSource)(nil)
//
//  2. Pass it to catalogsync.NewReconciler and downloads.NewEngine in entrypoint/app.go
//
// # Adding a New Storage Resolver
//
//  1. Implement catalog.Resolver
//
//     func (r S3Resolver) Resolve(ctx context.Context, path string) (string, error)
//
//  2. Add a case to App.newResolver and a STORAGE_RESOLVER value
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
