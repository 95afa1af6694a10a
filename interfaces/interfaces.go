// Package interfaces defines core abstractions for the drugbase API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/drugbase-api/entities"
)

// IntegrityReport summarizes the consistency gaps of the catalog that the
// schema does not enforce
type IntegrityReport struct {
	Healthy                  bool                 `json:"healthy"`
	DrugsWithoutTreatment    int64                `json:"drugs_without_treatment"`
	DrugsWithoutManufacturer int64                `json:"drugs_without_manufacturer"`
	GenericsWithoutDrug      int64                `json:"generics_without_drug"`
	UnlinkedTreatments       int64                `json:"unlinked_treatments"`
	UnlinkedSample           []entities.Treatment `json:"unlinked_sample"`
	Warnings                 []string             `json:"warnings"`
}

// SearchEngine defines the read side of the catalog.
// Every search pages by drug id: pass the largest drug id of the previous
// page as idFrom to get the next one.
type SearchEngine interface {
	DrugSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DrugRow, error)
	DiseaseSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DiseaseRow, error)
	MultiDiseaseTreatment(ctx context.Context, idFrom int64, minDiseases int) ([]entities.MultiDiseaseRow, error)
	DrugDescription(ctx context.Context, name string) ([]string, error)
}

// CatalogAdmin defines the development CRUD operations
type CatalogAdmin interface {
	ListManufacturers(ctx context.Context) ([]entities.EntityRow, error)
	ListDiseases(ctx context.Context) ([]entities.EntityRow, error)
	ListDrugs(ctx context.Context) ([]entities.EntityRow, error)
	ListGenerics(ctx context.Context) ([]entities.EntityRow, error)

	InsertManufacturer(ctx context.Context, name string) (int64, error)
	InsertDrug(ctx context.Context, d entities.Drug) (int64, error)
	InsertGeneric(ctx context.Context, g entities.Generic) (int64, error)
	InsertDisease(ctx context.Context, name string) (int64, error)
	InsertTreatment(ctx context.Context, t entities.Treatment) error

	// RenameManufacturer and DeleteDrug report whether the row existed
	RenameManufacturer(ctx context.Context, id int64, name string) (bool, error)
	DeleteDrug(ctx context.Context, id int64) (bool, error)
}

// StatsProvider exposes store level facts used by health and integrity checks
type StatsProvider interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (entities.Counts, error)
	IntegrityFacts(ctx context.Context) (entities.IntegrityFacts, error)
}

// Catalog is everything the HTTP layer needs from storage
type Catalog interface {
	SearchEngine
	CatalogAdmin
	StatsProvider
}

// Cache stores encoded search pages. Get reports a miss with ok false.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Purge drops every entry, called after each catalog mutation
	Purge(ctx context.Context) error
	Close() error
}

// Refresher reloads the catalog from its external source
type Refresher interface {
	Refresh(ctx context.Context) (entities.LoadStats, error)
}

// UpdateStatus tracks catalog reloads. BeginUpdate returns false when a
// reload is already running.
type UpdateStatus interface {
	BeginUpdate() bool
	EndUpdate(success bool)
	IsUpdating() bool
	GetLastUpdated() time.Time
	GetServerStartTime() time.Time
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated data updates and system health checks.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	DrugSearch(w http.ResponseWriter, r *http.Request)
	DiseaseSearch(w http.ResponseWriter, r *http.Request)
	MultiDiseaseTreatment(w http.ResponseWriter, r *http.Request)
	DrugDescription(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)

	// Dev handlers
	ListManufacturers(w http.ResponseWriter, r *http.Request)
	ListDiseases(w http.ResponseWriter, r *http.Request)
	ListDrugs(w http.ResponseWriter, r *http.Request)
	ListGenerics(w http.ResponseWriter, r *http.Request)
	Integrity(w http.ResponseWriter, r *http.Request)
	CreateManufacturer(w http.ResponseWriter, r *http.Request)
	CreateDrug(w http.ResponseWriter, r *http.Request)
	CreateGeneric(w http.ResponseWriter, r *http.Request)
	CreateDisease(w http.ResponseWriter, r *http.Request)
	CreateTreatment(w http.ResponseWriter, r *http.Request)
	RenameManufacturer(w http.ResponseWriter, r *http.Request)
	DeleteDrug(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status and the HTTP status
	// code the health endpoint should answer with
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled update time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateInput validates user supplied search strings and names
	ValidateInput(input string) error

	// ValidateID parses a non-negative identifier
	ValidateID(input string) (int64, error)

	// ValidateDataset checks a batch before it is loaded
	ValidateDataset(ds entities.Dataset) error

	// Report turns raw store facts into an integrity report
	Report(facts entities.IntegrityFacts) *IntegrityReport
}
