package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giygas/drugbase-api/entities"
)

// ============================================================================
// LISTINGS AND INSERTS
// ============================================================================

func TestInsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	manID, err := s.InsertManufacturer(ctx, "HealWell")
	if err != nil {
		t.Fatalf("InsertManufacturer failed: %v", err)
	}
	diseaseID, err := s.InsertDisease(ctx, "Hypertension")
	if err != nil {
		t.Fatalf("InsertDisease failed: %v", err)
	}
	genID, err := s.InsertGeneric(ctx, entities.Generic{Name: "lisinopril", Price: int64p(5)})
	if err != nil {
		t.Fatalf("InsertGeneric failed: %v", err)
	}
	drugID, err := s.InsertDrug(ctx, entities.Drug{Name: "Zestril", Price: int64p(40), Purpose: "blood pressure", ManID: &manID})
	if err != nil {
		t.Fatalf("InsertDrug failed: %v", err)
	}
	if err := s.InsertTreatment(ctx, entities.Treatment{DiseaseID: diseaseID, DrugID: drugID, GenID: genID}); err != nil {
		t.Fatalf("InsertTreatment failed: %v", err)
	}

	tests := []struct {
		name string
		list func(context.Context) ([]entities.EntityRow, error)
		want entities.EntityRow
	}{
		{"manufacturers", s.ListManufacturers, entities.EntityRow{ID: manID, Name: "HealWell"}},
		{"diseases", s.ListDiseases, entities.EntityRow{ID: diseaseID, Name: "Hypertension"}},
		{"generics", s.ListGenerics, entities.EntityRow{ID: genID, Name: "lisinopril"}},
		{"drugs", s.ListDrugs, entities.EntityRow{ID: drugID, Name: "Zestril"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := tt.list(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(rows) != 1 || rows[0] != tt.want {
				t.Errorf("Expected [%v], got %v", tt.want, rows)
			}
		})
	}

	// the treatment links the pair, so the drug becomes searchable
	rows, err := s.DrugSearch(ctx, 0, "Zes", PageSize)
	if err != nil {
		t.Fatalf("DrugSearch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].GenericName != "lisinopril" || rows[0].Diseases != "Hypertension" {
		t.Errorf("Unexpected search result %v", rows)
	}

	facts, err := s.IntegrityFacts(ctx)
	if err != nil {
		t.Fatalf("IntegrityFacts failed: %v", err)
	}
	if facts.UnlinkedTreatments != 0 {
		t.Errorf("Treatment inserted through the store should be linked, got %d unlinked", facts.UnlinkedTreatments)
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)
	rows, err := s.ListDrugs(context.Background())
	if err != nil {
		t.Fatalf("ListDrugs failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", rows)
	}
}

func TestInsertIDsGrow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.InsertManufacturer(ctx, "A")
	if err != nil {
		t.Fatalf("InsertManufacturer failed: %v", err)
	}
	second, err := s.InsertManufacturer(ctx, "B")
	if err != nil {
		t.Fatalf("InsertManufacturer failed: %v", err)
	}
	if second <= first {
		t.Errorf("Expected growing ids, got %d then %d", first, second)
	}
}

func TestInsertRejectsEmptyNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertManufacturer(ctx, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for blank manufacturer, got %v", err)
	}
	if _, err := s.InsertDrug(ctx, entities.Drug{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for blank drug, got %v", err)
	}
	if _, err := s.InsertDisease(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for blank disease, got %v", err)
	}
	if _, err := s.RenameManufacturer(ctx, 1, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for blank rename, got %v", err)
	}
}

func TestConstraintViolations(t *testing.T) {
	s := newTestStore(t)
	loadDataset(t, s, fluDataset())
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"drug with unknown manufacturer", func() error {
			_, err := s.InsertDrug(ctx, entities.Drug{Name: "Orphan", ManID: int64p(99)})
			return err
		}},
		{"treatment with unknown disease", func() error {
			return s.InsertTreatment(ctx, entities.Treatment{DiseaseID: 99, DrugID: 1, GenID: 1})
		}},
		{"treatment with unknown generic", func() error {
			return s.InsertTreatment(ctx, entities.Treatment{DiseaseID: 1, DrugID: 1, GenID: 99})
		}},
		{"duplicate treatment", func() error {
			return s.InsertTreatment(ctx, entities.Treatment{DiseaseID: 1, DrugID: 1, GenID: 1})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrConstraint) {
				t.Errorf("Expected ErrConstraint, got %v", err)
			}
		})
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Drugs != 3 || counts.Treatments != 3 || counts.DrugAlts != 3 {
		t.Errorf("Failed inserts must not leave rows behind: %+v", counts)
	}
}

// ============================================================================
// RENAME AND DELETE
// ============================================================================

func TestRenameManufacturer(t *testing.T) {
	s := newTestStore(t)
	loadDataset(t, s, fluDataset())
	ctx := context.Background()

	found, err := s.RenameManufacturer(ctx, 1, "CureTech")
	if err != nil {
		t.Fatalf("RenameManufacturer failed: %v", err)
	}
	if !found {
		t.Error("Expected manufacturer 1 to exist")
	}
	rows, _ := s.ListManufacturers(ctx)
	if len(rows) != 1 || rows[0].Name != "CureTech" {
		t.Errorf("Expected renamed manufacturer, got %v", rows)
	}

	found, err = s.RenameManufacturer(ctx, 42, "Nobody")
	if err != nil {
		t.Fatalf("RenameManufacturer failed: %v", err)
	}
	if found {
		t.Error("Expected manufacturer 42 to be missing")
	}
}

func TestDeleteDrugCascades(t *testing.T) {
	s := newTestStore(t)
	loadDataset(t, s, fluDataset())
	ctx := context.Background()

	found, err := s.DeleteDrug(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteDrug failed: %v", err)
	}
	if !found {
		t.Fatal("Expected drug 1 to exist")
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := entities.Counts{Manufacturers: 1, Drugs: 2, Generics: 3, Diseases: 1, DrugAlts: 2, Treatments: 2}
	if counts != want {
		t.Errorf("Expected %+v, got %+v", want, counts)
	}

	rows, err := s.DrugSearch(ctx, 0, "Acu", PageSize)
	if err != nil {
		t.Fatalf("DrugSearch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].DrugID != 2 {
		t.Errorf("Deleted drug still searchable: %v", rows)
	}

	// second delete is a no-op
	found, err = s.DeleteDrug(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteDrug failed: %v", err)
	}
	if found {
		t.Error("Expected second delete to report a missing drug")
	}

	// ids are not reused after a delete
	id, err := s.InsertDrug(ctx, entities.Drug{Name: "Acuvir"})
	if err != nil {
		t.Fatalf("InsertDrug failed: %v", err)
	}
	if id <= 3 {
		t.Errorf("Expected a fresh id above 3, got %d", id)
	}
}

// ============================================================================
// BULK LOAD AND INTEGRITY
// ============================================================================

func TestBulkLoadIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ds := catalogDataset(10, 3)

	first, err := s.BulkLoad(ctx, ds)
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if first.Total() != int64(ds.Len()) {
		t.Errorf("Expected %d inserted rows, got %d", ds.Len(), first.Total())
	}

	second, err := s.BulkLoad(ctx, ds)
	if err != nil {
		t.Fatalf("Second BulkLoad failed: %v", err)
	}
	if second.Total() != 0 {
		t.Errorf("Expected reload to insert nothing, got %+v", second)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Drugs != 10 || counts.Generics != 10 || counts.Diseases != 3 {
		t.Errorf("Unexpected counts %+v", counts)
	}
}

func TestBulkLoadRollsBackOnBrokenReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ds := fluDataset()
	ds.Treatments = append(ds.Treatments, entities.Treatment{DiseaseID: 77, DrugID: 1, GenID: 1})

	if _, err := s.BulkLoad(ctx, ds); !errors.Is(err, ErrConstraint) {
		t.Fatalf("Expected ErrConstraint, got %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts != (entities.Counts{}) {
		t.Errorf("Expected empty store after failed load, got %+v", counts)
	}
}

func TestBulkLoadAssignsIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.BulkLoad(ctx, entities.Dataset{
		Manufacturers: []entities.Manufacturer{{Name: "PharmaCorp"}, {Name: "BioGen"}},
		Diseases:      []entities.Disease{{Name: "Cold"}},
	})
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if stats.Manufacturers != 2 || stats.Diseases != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestIntegrityFacts(t *testing.T) {
	s := newTestStore(t)
	ds := fluDataset()
	ds.Drugs = append(ds.Drugs, entities.Drug{ID: 4, Name: "Nomanix"})
	ds.Generics = append(ds.Generics, entities.Generic{ID: 4, Name: "lonely"})
	// treatment naming a pair that is not in DrugAlt
	ds.Treatments = append(ds.Treatments, entities.Treatment{DiseaseID: 1, DrugID: 2, GenID: 3})
	loadDataset(t, s, ds)

	facts, err := s.IntegrityFacts(context.Background())
	if err != nil {
		t.Fatalf("IntegrityFacts failed: %v", err)
	}
	if facts.DrugsWithoutTreatment != 1 {
		t.Errorf("Expected 1 drug without treatment, got %d", facts.DrugsWithoutTreatment)
	}
	if facts.DrugsWithoutManufacturer != 1 {
		t.Errorf("Expected 1 drug without manufacturer, got %d", facts.DrugsWithoutManufacturer)
	}
	if facts.GenericsWithoutDrug != 1 {
		t.Errorf("Expected 1 generic without drug, got %d", facts.GenericsWithoutDrug)
	}
	if facts.UnlinkedTreatments != 1 {
		t.Errorf("Expected 1 unlinked treatment, got %d", facts.UnlinkedTreatments)
	}
	want := entities.Treatment{DiseaseID: 1, DrugID: 2, GenID: 3}
	if len(facts.UnlinkedSample) != 1 || facts.UnlinkedSample[0] != want {
		t.Errorf("Expected sample [%v], got %v", want, facts.UnlinkedSample)
	}
}

func TestBulkLoadIsBoundByBulkTimeout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// a query timeout no statement can meet
	s.queryTimeout = time.Nanosecond

	if _, err := s.InsertManufacturer(ctx, "Late"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected single writes to hit the query timeout, got %v", err)
	}

	stats, err := s.BulkLoad(ctx, fluDataset())
	if err != nil {
		t.Fatalf("BulkLoad should only be bound by the bulk timeout, got %v", err)
	}
	if stats.Drugs != 3 {
		t.Errorf("Expected 3 drugs, got %+v", stats)
	}

	s.bulkTimeout = time.Nanosecond
	ds := fluDataset()
	ds.Drugs[0].ID = 40
	if _, err := s.BulkLoad(ctx, ds); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected the bulk timeout to apply, got %v", err)
	}
}
