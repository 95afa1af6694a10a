package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/logging"
)

// FDA products export (Drugs@FDA Products.txt). Only the application number
// and the drug name are kept; the export carries no price nor manufacturer.
const (
	FDAProductsFile = "Products.txt"

	fdaApplNoColumn   = "ApplNo"
	fdaDrugNameColumn = "DrugName"
	fdaPurpose        = "info"
)

// ReadFDAProducts reads a tab separated FDA products export into brand
// drugs: ApplNo becomes the drug id and DrugName its name, with price 0,
// purpose "info" and no manufacturer. An application lists one line per
// product; the first line of each application wins.
func ReadFDAProducts(path string) (entities.Dataset, FileStats, error) {
	file := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return entities.Dataset{}, FileStats{File: file}, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close ingest file", "file", file, "error", err)
		}
	}()

	var (
		drugs   []entities.Drug
		idCol   = -1
		nameCol = -1
	)
	tr := tableReader{
		file:    file,
		columns: 2,
		header: func(fields []string) error {
			idCol = slices.Index(fields, fdaApplNoColumn)
			nameCol = slices.Index(fields, fdaDrugNameColumn)
			if idCol < 0 || nameCol < 0 {
				return fmt.Errorf("header lacks %s or %s", fdaApplNoColumn, fdaDrugNameColumn)
			}
			return nil
		},
		parse: func(fields []string) error {
			if idCol < 0 {
				return fmt.Errorf("%w: no header line", errFormat)
			}
			if len(fields) <= max(idCol, nameCol) {
				return fmt.Errorf("%w: short line", errFormat)
			}
			id, err := parseID(fields[idCol])
			if err != nil {
				return err
			}
			if fields[nameCol] == "" {
				return fmt.Errorf("%w: empty drug name", errFormat)
			}
			price := int64(0)
			drugs = append(drugs, entities.Drug{ID: id, Name: fields[nameCol], Price: &price, Purpose: fdaPurpose})
			return nil
		},
	}

	stats, err := readTable(f, tr)
	if err != nil {
		return entities.Dataset{}, stats, err
	}
	if idCol < 0 {
		return entities.Dataset{}, stats, fmt.Errorf("%s: missing %s/%s header", file, fdaApplNoColumn, fdaDrugNameColumn)
	}

	seen := make(map[int64]struct{}, len(drugs))
	ds := entities.Dataset{Drugs: drugs[:0]}
	for _, d := range drugs {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		ds.Drugs = append(ds.Drugs, d)
	}
	return ds, stats, nil
}

// FDARefresher reloads brand drugs from an FDA products export
type FDARefresher struct {
	path   string
	loader *Loader
}

func NewFDARefresher(path string, loader *Loader) *FDARefresher {
	return &FDARefresher{path: path, loader: loader}
}

func (r *FDARefresher) Refresh(ctx context.Context) (entities.LoadStats, error) {
	ds, stats, err := ReadFDAProducts(r.path)
	if err != nil {
		return entities.LoadStats{}, err
	}
	logging.Debug("Ingest file read", "file", stats.File, "records", stats.Records,
		"skipped", stats.Skipped(), "drugs", len(ds.Drugs))
	return r.loader.Load(ctx, ds)
}
