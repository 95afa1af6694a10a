package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/metrics"
)

// Target is the store side of a load
type Target interface {
	BulkLoad(ctx context.Context, ds entities.Dataset) (entities.LoadStats, error)
	IntegrityFacts(ctx context.Context) (entities.IntegrityFacts, error)
}

// Invalidator drops cached search results after the catalog changed
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Loader validates datasets and inserts them into the store
type Loader struct {
	target      Target
	validator   interfaces.DataValidator
	invalidator Invalidator
}

// NewLoader creates a loader. invalidator may be nil when no cache is in use.
func NewLoader(target Target, validator interfaces.DataValidator, invalidator Invalidator) *Loader {
	return &Loader{target: target, validator: validator, invalidator: invalidator}
}

// Load inserts ds in one transaction. Rows that already exist are skipped,
// so loading the same dataset twice inserts nothing the second time.
func (l *Loader) Load(ctx context.Context, ds entities.Dataset) (entities.LoadStats, error) {
	if err := l.validator.ValidateDataset(ds); err != nil {
		return entities.LoadStats{}, fmt.Errorf("validate dataset: %w", err)
	}

	start := time.Now()
	stats, err := l.target.BulkLoad(ctx, ds)
	if err != nil {
		return entities.LoadStats{}, fmt.Errorf("bulk load failed: %w", err)
	}

	recordStats(stats)
	if stats.Total() > 0 && l.invalidator != nil {
		l.invalidator.Invalidate(ctx)
	}

	logging.Info("Dataset loaded",
		"records", ds.Len(),
		"inserted", stats.Total(),
		"manufacturers", stats.Manufacturers,
		"drugs", stats.Drugs,
		"generics", stats.Generics,
		"diseases", stats.Diseases,
		"drug_alts", stats.DrugAlts,
		"treatments", stats.Treatments,
		"duration", time.Since(start))

	// The report is informational: a load with gaps still succeeds
	if _, err := l.Check(ctx); err != nil {
		logging.Warn("Integrity check after load failed", "error", err)
	}
	return stats, nil
}

// Check builds the integrity report of the current catalog
func (l *Loader) Check(ctx context.Context) (*interfaces.IntegrityReport, error) {
	facts, err := l.target.IntegrityFacts(ctx)
	if err != nil {
		return nil, err
	}
	return l.validator.Report(facts), nil
}

func recordStats(stats entities.LoadStats) {
	metrics.IngestRows.WithLabelValues("manufacturer").Add(float64(stats.Manufacturers))
	metrics.IngestRows.WithLabelValues("drug").Add(float64(stats.Drugs))
	metrics.IngestRows.WithLabelValues("generic").Add(float64(stats.Generics))
	metrics.IngestRows.WithLabelValues("disease").Add(float64(stats.Diseases))
	metrics.IngestRows.WithLabelValues("drug_alt").Add(float64(stats.DrugAlts))
	metrics.IngestRows.WithLabelValues("treatment").Add(float64(stats.Treatments))
	metrics.IngestLastSuccess.SetToCurrentTime()
}

// Compile-time check to ensure DirRefresher implements Refresher
var _ interfaces.Refresher = (*DirRefresher)(nil)

// DirRefresher reloads the catalog from a directory of table files
type DirRefresher struct {
	dir    string
	loader *Loader
}

func NewDirRefresher(dir string, loader *Loader) *DirRefresher {
	return &DirRefresher{dir: dir, loader: loader}
}

// Refresh reads the directory and loads what it holds
func (r *DirRefresher) Refresh(ctx context.Context) (entities.LoadStats, error) {
	ds, files, err := ReadDir(r.dir)
	if err != nil {
		return entities.LoadStats{}, err
	}
	for _, f := range files {
		logging.Debug("Ingest file read", "file", f.File, "records", f.Records, "skipped", f.Skipped())
	}
	return r.loader.Load(ctx, ds)
}

// FixtureRefresher loads a generated dataset. Fixtures are deterministic, so
// after the first run a refresh inserts nothing.
type FixtureRefresher struct {
	seed   uint64
	sizes  Sizes
	loader *Loader
}

func NewFixtureRefresher(seed uint64, sizes Sizes, loader *Loader) *FixtureRefresher {
	return &FixtureRefresher{seed: seed, sizes: sizes, loader: loader}
}

func (r *FixtureRefresher) Refresh(ctx context.Context) (entities.LoadStats, error) {
	return r.loader.Load(ctx, GenerateFixtures(r.seed, r.sizes))
}
