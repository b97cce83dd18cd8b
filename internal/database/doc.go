// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, integrity check, migrations
//	├── seed.go          # Bundled course seeding
//	├── provider.go      # Lazily opened, memoized handle
//	├── courses/         # Course CRUD, listing filters and ranked search
//	├── categories/      # Fixed category set and derived course counts
//	├── downloads/       # Download progress rows
//	├── preferences/     # Key/value user preferences
//	└── history/         # Search history log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./courseshelf.db")
//	coursesRepo := courses.NewRepository(db.DB)
//	list, err := coursesRepo.ListCourses(courses.DownloadedOnly())
//
// The Database struct wraps the repositories behind one store contract.
// Every storage failure it returns wraps ErrStorage, and a row that does not
// exist is reported as (nil, nil) rather than an error.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add an entity with TableName() and register it in NewDatabase's AutoMigrate
//  5. Add compile-time interface checks in internal/interfaces
package database
