package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/giygas/drugbase-api/entities"
)

// unlinkedSampleSize caps the Treatment rows listed by IntegrityFacts
const unlinkedSampleSize = 20

func (s *Store) listEntities(ctx context.Context, operation, query string) ([]entities.EntityRow, error) {
	rows := []entities.EntityRow{}
	err := s.read(ctx, operation, func(ctx context.Context) error {
		rows = rows[:0]
		res, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer res.Close()

		for res.Next() {
			var r entities.EntityRow
			if err := res.Scan(&r.ID, &r.Name); err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListManufacturers returns every manufacturer ordered by id
func (s *Store) ListManufacturers(ctx context.Context) ([]entities.EntityRow, error) {
	return s.listEntities(ctx, "list_manufacturers", s.q.listManufacturer)
}

// ListDiseases returns every disease ordered by id
func (s *Store) ListDiseases(ctx context.Context) ([]entities.EntityRow, error) {
	return s.listEntities(ctx, "list_diseases", s.q.listDisease)
}

// ListDrugs returns the id and name of every brand drug ordered by id
func (s *Store) ListDrugs(ctx context.Context) ([]entities.EntityRow, error) {
	return s.listEntities(ctx, "list_drugs", s.q.listDrug)
}

// ListGenerics returns the id and name of every generic ordered by id
func (s *Store) ListGenerics(ctx context.Context) ([]entities.EntityRow, error) {
	return s.listEntities(ctx, "list_generics", s.q.listGeneric)
}

func requireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, field)
	}
	return nil
}

func (s *Store) insertReturningID(ctx context.Context, operation, query string, args ...any) (int64, error) {
	var id int64
	err := s.write(ctx, operation, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query, args...).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertManufacturer adds a manufacturer and returns its store-assigned id
func (s *Store) InsertManufacturer(ctx context.Context, name string) (int64, error) {
	if err := requireName("name", name); err != nil {
		return 0, err
	}
	return s.insertReturningID(ctx, "insert_manufacturer", s.q.insertManufacturer, name)
}

// InsertDrug adds a brand drug. A ManID that matches no manufacturer fails
// with ErrConstraint.
func (s *Store) InsertDrug(ctx context.Context, d entities.Drug) (int64, error) {
	if err := requireName("name", d.Name); err != nil {
		return 0, err
	}
	return s.insertReturningID(ctx, "insert_drug", s.q.insertDrug, d.Name, d.Price, d.Purpose, d.ManID)
}

// InsertGeneric adds a generic and returns its id
func (s *Store) InsertGeneric(ctx context.Context, g entities.Generic) (int64, error) {
	if err := requireName("name", g.Name); err != nil {
		return 0, err
	}
	return s.insertReturningID(ctx, "insert_generic", s.q.insertGeneric, g.Name, g.Price, g.Purpose)
}

// InsertDisease adds a disease and returns its id
func (s *Store) InsertDisease(ctx context.Context, name string) (int64, error) {
	if err := requireName("name", name); err != nil {
		return 0, err
	}
	return s.insertReturningID(ctx, "insert_disease", s.q.insertDisease, name)
}

// InsertTreatment records a treatment and, in the same transaction, the
// drug/generic pairing it relies on, so treatments written through the store
// always name a valid DrugAlt pair. A duplicate treatment or unknown id
// fails with ErrConstraint.
func (s *Store) InsertTreatment(ctx context.Context, t entities.Treatment) error {
	return s.write(ctx, "insert_treatment", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q.linkDrugAlt, t.DrugID, t.GenID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q.insertTreatment, t.DiseaseID, t.DrugID, t.GenID)
		return err
	})
}

// RenameManufacturer changes a manufacturer name and reports whether the
// manufacturer exists
func (s *Store) RenameManufacturer(ctx context.Context, id int64, name string) (bool, error) {
	if err := requireName("new_name", name); err != nil {
		return false, err
	}
	var affected int64
	err := s.write(ctx, "rename_manufacturer", func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q.renameManufacturer, name, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteDrug removes a brand drug and everything that references it, in
// dependency order: Treatment rows, then DrugAlt rows, then the NBDrugs row.
// The three statements share one transaction so a partial cascade is never
// visible. It reports whether the drug existed.
func (s *Store) DeleteDrug(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := s.write(ctx, "delete_drug", func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range []string{s.q.deleteDrugTreatments, s.q.deleteDrugAlts} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, s.q.deleteDrug, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Counts returns the number of rows of every table
func (s *Store) Counts(ctx context.Context) (entities.Counts, error) {
	var c entities.Counts
	err := s.read(ctx, "counts", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.q.count).Scan(
			&c.Manufacturers, &c.Drugs, &c.Generics, &c.Diseases, &c.DrugAlts, &c.Treatments)
	})
	return c, err
}

// IntegrityFacts measures the consistency gaps the schema does not enforce
func (s *Store) IntegrityFacts(ctx context.Context) (entities.IntegrityFacts, error) {
	var f entities.IntegrityFacts
	err := s.read(ctx, "integrity_facts", func(ctx context.Context) error {
		for _, c := range []struct {
			query string
			dst   *int64
		}{
			{s.q.integrityDrugsWithoutTreatment, &f.DrugsWithoutTreatment},
			{s.q.integrityDrugsWithoutManufacturer, &f.DrugsWithoutManufacturer},
			{s.q.integrityGenericsWithoutDrug, &f.GenericsWithoutDrug},
			{s.q.integrityUnlinkedTreatments, &f.UnlinkedTreatments},
		} {
			if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
				return err
			}
		}

		res, err := s.db.QueryContext(ctx, s.q.integrityUnlinkedSample, unlinkedSampleSize)
		if err != nil {
			return err
		}
		defer res.Close()

		f.UnlinkedSample = f.UnlinkedSample[:0]
		for res.Next() {
			var t entities.Treatment
			if err := res.Scan(&t.DiseaseID, &t.DrugID, &t.GenID); err != nil {
				return err
			}
			f.UnlinkedSample = append(f.UnlinkedSample, t)
		}
		return res.Err()
	})
	return f, err
}
