package store

import (
	"context"
	"sync"
	"testing"

	"github.com/giygas/drugbase-api/ingest"
)

var (
	benchmarkStore *Store
	benchmarkOnce  sync.Once
)

// benchStore loads a fixture catalog ten times the default size once for all
// benchmarks
func benchStore(b *testing.B) *Store {
	b.Helper()
	benchmarkOnce.Do(func() {
		s, err := OpenMemory(context.Background())
		if err != nil {
			b.Fatalf("Failed to open memory store: %v", err)
		}
		ds := ingest.GenerateFixtures(42, ingest.Sizes{Drugs: 2000, Generics: 2000, Treatments: 6000})
		if _, err := s.BulkLoad(context.Background(), ds); err != nil {
			b.Fatalf("Failed to load fixtures: %v", err)
		}
		benchmarkStore = s
	})
	if benchmarkStore == nil {
		b.Skip("benchmark store unavailable")
	}
	return benchmarkStore
}

func BenchmarkDrugSearch(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.DrugSearch(ctx, 0, "A", PageSize); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiseaseSearch(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.DiseaseSearch(ctx, 0, "C", PageSize); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMultiDiseaseTreatment(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := s.MultiDiseaseTreatment(ctx, 0, DefaultMinDiseases); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDrugSearchParallel(b *testing.B) {
	s := benchStore(b)
	ctx := context.Background()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.DrugSearch(ctx, 0, "B", CompactPageSize); err != nil {
				b.Fatal(err)
			}
		}
	})
}
