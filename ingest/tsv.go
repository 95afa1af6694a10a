package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/logging"
)

// File names read by ReadDir, one table each
const (
	ManufacturersFile = "manufacturers.tsv"
	DiseasesFile      = "diseases.tsv"
	DrugsFile         = "drugs.tsv"
	GenericsFile      = "generics.tsv"
	DrugAltsFile      = "drug_alts.tsv"
	TreatmentsFile    = "treatments.tsv"
)

// ErrNoInput is returned when a directory holds none of the table files
var ErrNoInput = errors.New("no ingest files found")

// FileStats counts the lines of one file
type FileStats struct {
	File           string
	Lines          int
	Records        int
	EmptyLines     int
	MissingColumns int
	FormatErrors   int
}

// Skipped returns the number of lines that did not produce a record
func (s FileStats) Skipped() int {
	return s.EmptyLines + s.MissingColumns + s.FormatErrors
}

// errFormat marks a line whose fields do not parse
var errFormat = errors.New("malformed field")

// tableReader parses one line of a table file into the dataset it owns
type tableReader struct {
	file    string
	columns int
	parse   func(fields []string) error
	// header, when set, receives the header line
	header func(fields []string) error
}

// ReadDir reads every table file present in dir. Missing files leave their
// table empty; a directory with none of them is an error. Files are read
// concurrently and records keep their file order.
func ReadDir(dir string) (entities.Dataset, []FileStats, error) {
	var (
		ds entities.Dataset
		mu sync.Mutex
	)

	readers := []tableReader{
		{ManufacturersFile, 2, func(f []string) error {
			id, err := parseID(f[0])
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Manufacturers = append(ds.Manufacturers, entities.Manufacturer{ID: id, Name: f[1]})
			mu.Unlock()
			return nil
		}, nil},
		{DiseasesFile, 2, func(f []string) error {
			id, err := parseID(f[0])
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Diseases = append(ds.Diseases, entities.Disease{ID: id, Name: f[1]})
			mu.Unlock()
			return nil
		}, nil},
		{DrugsFile, 2, func(f []string) error {
			id, err := parseID(f[0])
			if err != nil {
				return err
			}
			price, err := optionalInt(f, 2)
			if err != nil {
				return err
			}
			manID, err := optionalInt(f, 4)
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Drugs = append(ds.Drugs, entities.Drug{ID: id, Name: f[1], Price: price, Purpose: column(f, 3), ManID: manID})
			mu.Unlock()
			return nil
		}, nil},
		{GenericsFile, 2, func(f []string) error {
			id, err := parseID(f[0])
			if err != nil {
				return err
			}
			price, err := optionalInt(f, 2)
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Generics = append(ds.Generics, entities.Generic{ID: id, Name: f[1], Price: price, Purpose: column(f, 3)})
			mu.Unlock()
			return nil
		}, nil},
		{DrugAltsFile, 2, func(f []string) error {
			ids, err := parseIDs(f[:2])
			if err != nil {
				return err
			}
			mu.Lock()
			ds.DrugAlts = append(ds.DrugAlts, entities.DrugAlt{DrugID: ids[0], GenID: ids[1]})
			mu.Unlock()
			return nil
		}, nil},
		{TreatmentsFile, 3, func(f []string) error {
			ids, err := parseIDs(f[:3])
			if err != nil {
				return err
			}
			mu.Lock()
			ds.Treatments = append(ds.Treatments, entities.Treatment{DiseaseID: ids[0], DrugID: ids[1], GenID: ids[2]})
			mu.Unlock()
			return nil
		}, nil},
	}

	var (
		wg    sync.WaitGroup
		stats = make([]FileStats, len(readers))
		found = make([]bool, len(readers))
		errs  = make([]error, len(readers))
	)
	for i, tr := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := filepath.Join(dir, tr.file)
			f, err := os.Open(path)
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			if err != nil {
				errs[i] = fmt.Errorf("failed to open %s: %w", tr.file, err)
				return
			}
			defer func() {
				if err := f.Close(); err != nil {
					logging.Warn("Failed to close ingest file", "file", tr.file, "error", err)
				}
			}()
			found[i] = true
			stats[i], errs[i] = readTable(f, tr)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return entities.Dataset{}, nil, err
	}

	var present []FileStats
	for i, ok := range found {
		if ok {
			present = append(present, stats[i])
		}
	}
	if len(present) == 0 {
		return entities.Dataset{}, nil, fmt.Errorf("%w in %s", ErrNoInput, dir)
	}

	return ds, present, nil
}

// readTable parses one table file. Files that are not valid UTF-8 are
// decoded as Windows-1252, the usual encoding of spreadsheet exports.
func readTable(r io.Reader, tr tableReader) (FileStats, error) {
	stats := FileStats{File: tr.file}

	raw, err := io.ReadAll(r)
	if err != nil {
		return stats, fmt.Errorf("failed to read %s: %w", tr.file, err)
	}

	var reader io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		logging.Debug("Decoding ingest file as Windows-1252", "file", tr.file)
		reader = charmap.Windows1252.NewDecoder().Reader(reader)
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			stats.EmptyLines++
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < tr.columns {
			stats.MissingColumns++
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		// A first line whose id column is not a number is a header
		if stats.Lines == 1 {
			if _, err := strconv.ParseInt(fields[0], 10, 64); err != nil {
				if tr.header != nil {
					if err := tr.header(fields); err != nil {
						return stats, fmt.Errorf("%s: %w", tr.file, err)
					}
				}
				continue
			}
		}

		if err := tr.parse(fields); err != nil {
			stats.FormatErrors++
			continue
		}
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scanner error in %s: %w", tr.file, err)
	}

	if stats.Skipped() > 0 {
		logging.Info(tr.file+" skip statistics",
			"empty_lines", stats.EmptyLines,
			"missing_columns", stats.MissingColumns,
			"format_errors", stats.FormatErrors,
			"total_lines", stats.Lines,
			"records_parsed", stats.Records)
	}
	return stats, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: id %q", errFormat, s)
	}
	return id, nil
}

func parseIDs(fields []string) ([]int64, error) {
	ids := make([]int64, len(fields))
	for i, f := range fields {
		id, err := parseID(f)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// optionalInt reads column i; an absent or empty column is nil
func optionalInt(fields []string, i int) (*int64, error) {
	v := column(fields, i)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: column %d %q", errFormat, i+1, v)
	}
	return &n, nil
}

func column(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
