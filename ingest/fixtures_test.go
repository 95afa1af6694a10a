package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestGenerateFixturesIsDeterministic(t *testing.T) {
	a := GenerateFixtures(42, DefaultSizes)
	b := GenerateFixtures(42, DefaultSizes)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Same seed produced different datasets")
	}

	c := GenerateFixtures(7, DefaultSizes)
	if reflect.DeepEqual(a.Drugs, c.Drugs) {
		t.Error("Different seeds produced identical drugs")
	}
}

func TestGenerateFixturesShape(t *testing.T) {
	ds := GenerateFixtures(1, DefaultSizes)

	if len(ds.Manufacturers) != 5 || len(ds.Diseases) != 6 {
		t.Fatalf("Expected 5 manufacturers and 6 diseases, got %d and %d", len(ds.Manufacturers), len(ds.Diseases))
	}
	if len(ds.Drugs) != 199 || len(ds.Generics) != 205 || len(ds.Treatments) != 220 {
		t.Fatalf("Unexpected sizes: %d drugs, %d generics, %d treatments", len(ds.Drugs), len(ds.Generics), len(ds.Treatments))
	}
	if len(ds.DrugAlts) != 199 {
		t.Errorf("Expected one DrugAlt per drug, got %d", len(ds.DrugAlts))
	}

	names := make(map[string]bool)
	for i, d := range ds.Drugs {
		if d.ID != int64(i+1) {
			t.Errorf("Drug %d has id %d", i, d.ID)
		}
		if names[d.Name] {
			t.Errorf("Duplicate drug name %q", d.Name)
		}
		names[d.Name] = true
		if *d.Price < 20 || *d.Price > 100 {
			t.Errorf("Drug price %d out of range", *d.Price)
		}
		if *d.ManID < 1 || *d.ManID > 5 {
			t.Errorf("Drug manufacturer %d out of range", *d.ManID)
		}
	}
	for _, g := range ds.Generics {
		if *g.Price < 10 || *g.Price > 50 {
			t.Errorf("Generic price %d out of range", *g.Price)
		}
	}
	for _, tr := range ds.Treatments {
		if tr.DiseaseID < 1 || tr.DiseaseID > 6 || tr.DrugID < 1 || tr.DrugID > 199 || tr.GenID < 1 || tr.GenID > 205 {
			t.Errorf("Treatment out of range: %+v", tr)
		}
	}
}

func TestGenerateFixturesBeyondNamePool(t *testing.T) {
	pool := len(namePrefixes) * len(nameSuffixes)
	ds := GenerateFixtures(3, Sizes{Drugs: pool + 10})

	names := make(map[string]bool, len(ds.Drugs))
	suffixed := 0
	for _, d := range ds.Drugs {
		if names[d.Name] {
			t.Fatalf("Duplicate drug name %q", d.Name)
		}
		names[d.Name] = true
		if strings.Contains(d.Name, "-") {
			suffixed++
		}
	}
	if suffixed < 10 {
		t.Errorf("Expected at least 10 numbered names, got %d", suffixed)
	}
	if len(ds.Treatments) != 0 || len(ds.DrugAlts) != 0 {
		t.Error("Expected no links without generics")
	}
}
