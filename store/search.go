package store

import (
	"context"
	"database/sql"
	"unicode/utf8"

	"github.com/giygas/drugbase-api/entities"
)

// DefaultMinDiseases is the breadth threshold of MultiDiseaseTreatment when
// the caller gives none
const DefaultMinDiseases = 2

// pageLimit clamps a requested page size to (0, PageSize]
func pageLimit(limit int) int {
	if limit <= 0 || limit > PageSize {
		return PageSize
	}
	return limit
}

// cursor treats negative id_from values as the start of the keyset
func cursor(idFrom int64) int64 {
	if idFrom < 0 {
		return 0
	}
	return idFrom
}

// DrugSearch returns drugs whose name starts with prefix (case-sensitive,
// exact leading characters) and whose id is greater than idFrom, one row per
// drug, generic and manufacturer, ordered by drug id. A drug without any
// Treatment row never matches.
func (s *Store) DrugSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DrugRow, error) {
	rows := make([]entities.DrugRow, 0, pageLimit(limit))
	err := s.read(ctx, "drug_search", func(ctx context.Context) error {
		rows = rows[:0]
		res, err := s.db.QueryContext(ctx, s.q.drugSearch,
			utf8.RuneCountInString(prefix), prefix, cursor(idFrom), pageLimit(limit))
		if err != nil {
			return err
		}
		defer res.Close()

		for res.Next() {
			var (
				r                       entities.DrugRow
				diseases                sql.NullString
				genericPrice, drugPrice sql.NullInt64
			)
			if err := res.Scan(&r.Name, &r.DrugID, &r.GenID, &diseases, &genericPrice, &drugPrice, &r.GenericName); err != nil {
				return err
			}
			r.Diseases = diseases.String
			r.GenericPrice = nullableInt(genericPrice)
			r.DrugPrice = nullableInt(drugPrice)
			rows = append(rows, r)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DiseaseSearch returns one row per disease, drug and generic for diseases
// whose name starts with prefix, ordered by drug id
func (s *Store) DiseaseSearch(ctx context.Context, idFrom int64, prefix string, limit int) ([]entities.DiseaseRow, error) {
	rows := make([]entities.DiseaseRow, 0, pageLimit(limit))
	err := s.read(ctx, "disease_search", func(ctx context.Context) error {
		rows = rows[:0]
		res, err := s.db.QueryContext(ctx, s.q.diseaseSearch,
			utf8.RuneCountInString(prefix), prefix, cursor(idFrom), pageLimit(limit))
		if err != nil {
			return err
		}
		defer res.Close()

		for res.Next() {
			var (
				r                       entities.DiseaseRow
				genericPrice, drugPrice sql.NullInt64
			)
			if err := res.Scan(&r.GenericName, &r.DiseaseID, &genericPrice, &drugPrice, &r.DrugID, &r.DiseaseName, &r.DrugName); err != nil {
				return err
			}
			r.GenericPrice = nullableInt(genericPrice)
			r.DrugPrice = nullableInt(drugPrice)
			rows = append(rows, r)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MultiDiseaseTreatment returns drugs treating at least minDiseases distinct
// diseases, broadest first and by ascending id among equals. minDiseases
// below 1 is treated as 1.
func (s *Store) MultiDiseaseTreatment(ctx context.Context, idFrom int64, minDiseases int) ([]entities.MultiDiseaseRow, error) {
	if minDiseases < 1 {
		minDiseases = 1
	}
	rows := make([]entities.MultiDiseaseRow, 0, PageSize)
	err := s.read(ctx, "multi_disease_treatment", func(ctx context.Context) error {
		rows = rows[:0]
		res, err := s.db.QueryContext(ctx, s.q.multiDisease, cursor(idFrom), minDiseases, PageSize)
		if err != nil {
			return err
		}
		defer res.Close()

		for res.Next() {
			var (
				r        entities.MultiDiseaseRow
				diseases sql.NullString
				price    sql.NullInt64
			)
			if err := res.Scan(&r.Name, &r.DrugID, &r.DiseaseCount, &diseases, &r.Manufacturer, &price); err != nil {
				return err
			}
			r.Diseases = diseases.String
			r.Price = nullableInt(price)
			rows = append(rows, r)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DrugDescription returns the purpose of every drug named exactly name
func (s *Store) DrugDescription(ctx context.Context, name string) ([]string, error) {
	purposes := []string{}
	err := s.read(ctx, "drug_description", func(ctx context.Context) error {
		purposes = purposes[:0]
		res, err := s.db.QueryContext(ctx, s.q.drugDescription, name)
		if err != nil {
			return err
		}
		defer res.Close()

		for res.Next() {
			var purpose sql.NullString
			if err := res.Scan(&purpose); err != nil {
				return err
			}
			purposes = append(purposes, purpose.String)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return purposes, nil
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
