// Package entities holds the table records and the result rows exchanged
// between the store, the cache and the HTTP layer.
package entities

// Manufacturer is a row of the Manufacturer table.
type Manufacturer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Drug is a brand-name drug (NBDrugs table). ManID is nil for drugs without a
// known manufacturer.
type Drug struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Price   *int64 `json:"price"`
	Purpose string `json:"purpose"`
	ManID   *int64 `json:"manId"`
}

// Generic is a non-brand equivalent (Generics table).
type Generic struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Price   *int64 `json:"price"`
	Purpose string `json:"purpose"`
}

type Disease struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DrugAlt links a brand drug to one of its generic alternatives.
type DrugAlt struct {
	DrugID int64 `json:"drugId"`
	GenID  int64 `json:"genId"`
}

// Treatment records that a disease is treated by a drug/generic pairing.
type Treatment struct {
	DiseaseID int64 `json:"diseaseId"`
	DrugID    int64 `json:"drugId"`
	GenID     int64 `json:"genId"`
}

// Dataset is a batch of records loaded in one go by fixtures or ingestion.
// Records with a zero ID get a store-assigned identifier.
type Dataset struct {
	Manufacturers []Manufacturer
	Diseases      []Disease
	Drugs         []Drug
	Generics      []Generic
	DrugAlts      []DrugAlt
	Treatments    []Treatment
}

// Len returns the total number of records in the dataset
func (d Dataset) Len() int {
	return len(d.Manufacturers) + len(d.Diseases) + len(d.Drugs) +
		len(d.Generics) + len(d.DrugAlts) + len(d.Treatments)
}

// Counts holds the number of rows per table.
type Counts struct {
	Manufacturers int64 `json:"manufacturers"`
	Drugs         int64 `json:"drugs"`
	Generics      int64 `json:"generics"`
	Diseases      int64 `json:"diseases"`
	DrugAlts      int64 `json:"drug_alts"`
	Treatments    int64 `json:"treatments"`
}

// LoadStats reports how many rows a bulk load actually inserted per table.
// Rows skipped because they already existed are not counted.
type LoadStats struct {
	Manufacturers int64 `json:"manufacturers"`
	Drugs         int64 `json:"drugs"`
	Generics      int64 `json:"generics"`
	Diseases      int64 `json:"diseases"`
	DrugAlts      int64 `json:"drug_alts"`
	Treatments    int64 `json:"treatments"`
}

// Total returns the number of inserted rows across all tables
func (s LoadStats) Total() int64 {
	return s.Manufacturers + s.Drugs + s.Generics + s.Diseases + s.DrugAlts + s.Treatments
}

// IntegrityFacts are the raw consistency measurements taken from the store.
type IntegrityFacts struct {
	DrugsWithoutTreatment    int64
	DrugsWithoutManufacturer int64
	GenericsWithoutDrug      int64
	UnlinkedTreatments       int64
	// Sample of Treatment rows whose drug/generic pair is missing from DrugAlt
	UnlinkedSample []Treatment
}
