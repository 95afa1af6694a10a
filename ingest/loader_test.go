package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/store"
	"github.com/giygas/drugbase-api/validation"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }

func newTestLoader(t *testing.T) (*Loader, *store.Store, *countingInvalidator) {
	t.Helper()
	s, err := store.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("Failed to open memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	inv := &countingInvalidator{}
	return NewLoader(s, validation.NewDataValidator(), inv), s, inv
}

func TestLoaderLoadsFixtures(t *testing.T) {
	loader, s, inv := newTestLoader(t)
	ctx := context.Background()

	ds := GenerateFixtures(99, DefaultSizes)
	stats, err := loader.Load(ctx, ds)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.Drugs != 199 || stats.Generics != 205 || stats.DrugAlts != 199 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if inv.calls != 1 {
		t.Errorf("Expected one invalidation, got %d", inv.calls)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Treatments != stats.Treatments || counts.Treatments == 0 {
		t.Errorf("Treatment count %d does not match inserted %d", counts.Treatments, stats.Treatments)
	}

	// Loading the same fixtures again inserts nothing and leaves the cache alone
	again, err := loader.Load(ctx, ds)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}
	if again.Total() != 0 {
		t.Errorf("Expected idempotent reload, inserted %+v", again)
	}
	if inv.calls != 1 {
		t.Errorf("Expected no invalidation for an empty load, got %d calls", inv.calls)
	}
}

func TestLoaderRejectsInvalidDataset(t *testing.T) {
	loader, s, _ := newTestLoader(t)
	ctx := context.Background()

	ds := entities.Dataset{Diseases: []entities.Disease{{ID: 1, Name: "  "}}}
	if _, err := loader.Load(ctx, ds); !errors.Is(err, validation.ErrInvalidInput) {
		t.Fatalf("Expected validation error, got %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Diseases != 0 {
		t.Errorf("Rejected dataset was written: %+v", counts)
	}
}

func TestLoaderSurfacesStoreErrors(t *testing.T) {
	loader, _, inv := newTestLoader(t)

	// Treatment referencing rows that do not exist
	ds := entities.Dataset{Treatments: []entities.Treatment{{DiseaseID: 1, DrugID: 1, GenID: 1}}}
	if _, err := loader.Load(context.Background(), ds); !errors.Is(err, store.ErrConstraint) {
		t.Fatalf("Expected constraint error, got %v", err)
	}
	if inv.calls != 0 {
		t.Error("Failed load must not invalidate the cache")
	}
}

func TestLoaderCheck(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	ctx := context.Background()

	report, err := loader.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Healthy {
		t.Errorf("Empty catalog should be healthy, got %+v", report)
	}

	if _, err := loader.Load(ctx, GenerateFixtures(5, DefaultSizes)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	report, err = loader.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	// Generics 200..205 have no brand drug
	if report.GenericsWithoutDrug != 6 {
		t.Errorf("Expected 6 generics without drug, got %d", report.GenericsWithoutDrug)
	}
	if report.Healthy {
		t.Error("Expected fixtures to report gaps")
	}
}

func TestDirRefresher(t *testing.T) {
	loader, s, _ := newTestLoader(t)
	dir := t.TempDir()
	files := map[string]string{
		ManufacturersFile: "1\tPharmaCorp\n",
		DiseasesFile:      "1\tFlu\n",
		DrugsFile:         "1\tAcuvir\t120\tantiviral\t1\n",
		GenericsFile:      "1\tacuvirine\t30\n",
		DrugAltsFile:      "1\t1\n",
		TreatmentsFile:    "1\t1\t1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	stats, err := NewDirRefresher(dir, loader).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if stats.Total() != 6 {
		t.Errorf("Expected 6 inserted rows, got %+v", stats)
	}

	rows, err := s.DrugSearch(context.Background(), 0, "Acu", store.PageSize)
	if err != nil {
		t.Fatalf("DrugSearch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Diseases != "Flu" {
		t.Errorf("Unexpected search rows %+v", rows)
	}
}

func TestDirRefresherMissingDir(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	if _, err := NewDirRefresher(filepath.Join(t.TempDir(), "nope"), loader).Refresh(context.Background()); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestFixtureRefresher(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	r := NewFixtureRefresher(11, Sizes{Drugs: 10, Generics: 10, Treatments: 15}, loader)

	first, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if first.Drugs != 10 {
		t.Errorf("Expected 10 drugs, got %+v", first)
	}
	second, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}
	if second.Total() != 0 {
		t.Errorf("Expected nothing new, got %+v", second)
	}
}
