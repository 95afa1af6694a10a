// Package ingest fills the catalog: synthetic fixtures for development and
// tab-separated exports for real data.
package ingest

import (
	"fmt"
	"math/rand/v2"

	"github.com/giygas/drugbase-api/entities"
)

// Sizes controls how many rows GenerateFixtures produces
type Sizes struct {
	Drugs      int
	Generics   int
	Treatments int
}

// DefaultSizes matches the development database: 199 brand drugs, 205
// generics and 220 random treatments
var DefaultSizes = Sizes{Drugs: 199, Generics: 205, Treatments: 220}

var (
	fixtureManufacturers = []string{"PharmaCorp", "MediLife", "HealWell", "BioGen", "CureTech"}
	fixturePurposes      = []string{"Pain Relief", "Antibiotic", "Anti-inflammatory", "Antiviral", "Blood Pressure"}
	fixtureDiseases      = []string{"Flu", "Cold", "Arthritis", "Hypertension", "Infection", "COVID-19"}

	namePrefixes = []string{
		"Acu", "Ben", "Cetra", "Dolo", "Exo", "Flora", "Geno", "Hema", "Immu", "Juvo",
		"Ketra", "Luma", "Myco", "Neuro", "Ortho", "Pedi", "Quanta", "Rena", "Sero", "Thera",
		"Ultra", "Vira", "Well", "Xeno", "Yura", "Zeno", "Allo", "Bio", "Cardi", "Derm",
		"Endo", "Ferro", "Gluco", "Hydro", "Intra", "Janu", "Kali", "Lacto", "Meta", "Natu",
		"Oxi", "Pura", "Qira", "Reju", "Syno", "Tera", "Uro", "Veno", "Welo", "Xilo", "Zyto",
		"Aero", "Bacto", "Cryo", "Dia", "Ecto", "Fito", "Gyne", "Halo", "Iso",
		"Karyo", "Lipo", "Micro", "Neo", "Osteo", "Pharma", "Quixo", "Ribo", "Seri", "Tricho",
		"Uvia", "Vaxo", "Xantho", "Yello", "Zymo", "Ambi", "Brio", "Cysto", "Delto", "Ergo",
		"Flexo", "Gastro", "Hepato", "Ion", "Jecto", "Kemo", "Lyso", "Medi", "Nexo", "Omni",
	}
	nameSuffixes = []string{
		"dol", "vir", "mune", "cillin", "pril", "zol", "pan", "nex", "rel", "med",
		"fen", "line", "done", "xone", "mycin", "thrin", "zine", "zole", "tide", "dopa",
		"pram", "xan", "barb", "mab", "stat", "mide", "prazole", "caine", "sartan", "dine",
		"one", "cort", "lone", "dazole", "phene", "terol", "tadine", "lukast", "mivir", "virin",
		"triptan", "gliptin", "afil", "asone", "setron", "ximab", "zumab", "tuzumab", "rubicin", "cid",
	}
)

// nameGenerator draws prefix+suffix names without repeats. Once the pool is
// exhausted names get a numeric tail.
type nameGenerator struct {
	rng  *rand.Rand
	used map[string]struct{}
}

func (g *nameGenerator) next() string {
	poolSize := len(namePrefixes) * len(nameSuffixes)
	for attempt := 0; ; attempt++ {
		name := namePrefixes[g.rng.IntN(len(namePrefixes))] + nameSuffixes[g.rng.IntN(len(nameSuffixes))]
		if len(g.used) >= poolSize || attempt > 4*poolSize {
			name = fmt.Sprintf("%s-%d", name, len(g.used)+1)
		}
		if _, taken := g.used[name]; !taken {
			g.used[name] = struct{}{}
			return name
		}
	}
}

// GenerateFixtures builds a deterministic synthetic catalog. The same seed
// always yields the same dataset. Drug i has generic i as its alternative;
// treatments pick disease, drug and generic at random, so some of them name
// a generic that is not linked to the drug.
func GenerateFixtures(seed uint64, sizes Sizes) entities.Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ds := entities.Dataset{}

	for i, name := range fixtureManufacturers {
		ds.Manufacturers = append(ds.Manufacturers, entities.Manufacturer{ID: int64(i + 1), Name: name})
	}
	for i, name := range fixtureDiseases {
		ds.Diseases = append(ds.Diseases, entities.Disease{ID: int64(i + 1), Name: name})
	}

	drugNames := &nameGenerator{rng: rng, used: make(map[string]struct{})}
	for i := 1; i <= sizes.Drugs; i++ {
		price := int64(20 + rng.IntN(81))
		manID := int64(1 + rng.IntN(len(fixtureManufacturers)))
		ds.Drugs = append(ds.Drugs, entities.Drug{
			ID:      int64(i),
			Name:    drugNames.next(),
			Price:   &price,
			Purpose: fixturePurposes[rng.IntN(len(fixturePurposes))],
			ManID:   &manID,
		})
	}

	genericNames := &nameGenerator{rng: rng, used: make(map[string]struct{})}
	for i := 1; i <= sizes.Generics; i++ {
		price := int64(10 + rng.IntN(41))
		ds.Generics = append(ds.Generics, entities.Generic{
			ID:      int64(i),
			Name:    genericNames.next(),
			Price:   &price,
			Purpose: fixturePurposes[rng.IntN(len(fixturePurposes))],
		})
	}

	for i := 1; i <= min(sizes.Drugs, sizes.Generics); i++ {
		ds.DrugAlts = append(ds.DrugAlts, entities.DrugAlt{DrugID: int64(i), GenID: int64(i)})
	}

	if sizes.Drugs > 0 && sizes.Generics > 0 {
		for i := 0; i < sizes.Treatments; i++ {
			ds.Treatments = append(ds.Treatments, entities.Treatment{
				DiseaseID: int64(1 + rng.IntN(len(fixtureDiseases))),
				DrugID:    int64(1 + rng.IntN(sizes.Drugs)),
				GenID:     int64(1 + rng.IntN(sizes.Generics)),
			})
		}
	}

	return ds
}
