package entities

import (
	"encoding/json"
	"fmt"
)

// Result rows are serialized as positional JSON arrays. The field order of
// each MarshalJSON is part of the public API and must not change.

// DrugRow is one drug search result: a drug, one of its generics and the
// diseases the drug treats.
type DrugRow struct {
	Name         string
	DrugID       int64
	GenID        int64
	Diseases     string
	GenericPrice *int64
	DrugPrice    *int64
	GenericName  string
}

// MarshalJSON encodes [name, drugID, genID, diseases, genericPrice, drugPrice, genericName]
func (r DrugRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Name, r.DrugID, r.GenID, r.Diseases, r.GenericPrice, r.DrugPrice, r.GenericName})
}

func (r *DrugRow) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &r.Name, &r.DrugID, &r.GenID, &r.Diseases, &r.GenericPrice, &r.DrugPrice, &r.GenericName)
}

// Key returns the pagination key of the row
func (r DrugRow) Key() int64 { return r.DrugID }

// DiseaseRow is one disease search result.
type DiseaseRow struct {
	GenericName  string
	DiseaseID    int64
	GenericPrice *int64
	DrugPrice    *int64
	DrugID       int64
	DiseaseName  string
	DrugName     string
}

// MarshalJSON encodes [genericName, diseaseID, genericPrice, drugPrice, drugID, diseaseName, drugName]
func (r DiseaseRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.GenericName, r.DiseaseID, r.GenericPrice, r.DrugPrice, r.DrugID, r.DiseaseName, r.DrugName})
}

func (r *DiseaseRow) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &r.GenericName, &r.DiseaseID, &r.GenericPrice, &r.DrugPrice, &r.DrugID, &r.DiseaseName, &r.DrugName)
}

func (r DiseaseRow) Key() int64 { return r.DrugID }

// MultiDiseaseRow is a drug treating several distinct diseases.
type MultiDiseaseRow struct {
	Name         string
	DrugID       int64
	DiseaseCount int64
	Diseases     string
	Manufacturer string
	Price        *int64
}

// MarshalJSON encodes [name, drugID, diseaseCount, diseases, manufacturer, price]
func (r MultiDiseaseRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Name, r.DrugID, r.DiseaseCount, r.Diseases, r.Manufacturer, r.Price})
}

func (r *MultiDiseaseRow) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &r.Name, &r.DrugID, &r.DiseaseCount, &r.Diseases, &r.Manufacturer, &r.Price)
}

func (r MultiDiseaseRow) Key() int64 { return r.DrugID }

// EntityRow is the [id, name] pair returned by the dev listings.
type EntityRow struct {
	ID   int64
	Name string
}

func (r EntityRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ID, r.Name})
}

func (r *EntityRow) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &r.ID, &r.Name)
}

// Keyed is implemented by rows that carry a keyset pagination key.
type Keyed interface {
	Key() int64
}

// NextIDFrom returns the cursor to pass as id_from for the page after rows.
// It returns from unchanged when rows is empty.
func NextIDFrom[T Keyed](from int64, rows []T) int64 {
	next := from
	for _, r := range rows {
		if k := r.Key(); k > next {
			next = k
		}
	}
	return next
}

func decodeTuple(data []byte, fields ...any) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != len(fields) {
		return fmt.Errorf("expected %d columns, got %d", len(fields), len(raw))
	}
	for i, f := range fields {
		if err := json.Unmarshal(raw[i], f); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}
