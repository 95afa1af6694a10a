// Package validation provides input checks for the drugbase API and turns
// raw store facts into the integrity report.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
)

const (
	// MaxInputLength is the longest search prefix or name accepted, in characters
	MaxInputLength = 100
	// maxDatasetIssues caps the problems listed by ValidateDataset
	maxDatasetIssues = 10
)

// Values reach SQL as bound parameters. These patterns guard the HTML and
// log consumers of names, not the database.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"onclick=", "onmouseover=", "<iframe", "<object", "<embed",
}

// ErrInvalidInput is wrapped by every validation failure
var ErrInvalidInput = errors.New("invalid input")

type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateInput checks a search prefix or a name. Prefixes are matched
// exactly, so case, accents and punctuation are all preserved and accepted.
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if !utf8.ValidString(input) {
		return invalid("input is not valid UTF-8")
	}

	if n := utf8.RuneCountInString(input); n > MaxInputLength {
		return invalid("input too long: maximum %d characters, got %d", MaxInputLength, n)
	}

	for _, r := range input {
		if unicode.IsControl(r) {
			return invalid("input contains control characters")
		}
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return invalid("input contains potentially dangerous content")
		}
	}

	if v.hasExcessiveRepetition(input) {
		return invalid("input contains excessive character repetition")
	}

	return nil
}

// ValidateID parses a non-negative identifier
// No regex used - strconv.ParseInt() validates numeric format for free
func (v *DataValidatorImpl) ValidateID(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, invalid("id cannot be empty")
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, invalid("id must be an integer, got %q", input)
	}
	if id < 0 {
		return 0, invalid("id must not be negative, got %d", id)
	}
	return id, nil
}

// ValidateDataset checks a batch before loading: identifiers must not be
// negative, names must not be blank and links must name positive ids.
// Referential integrity is left to the store.
func (v *DataValidatorImpl) ValidateDataset(ds entities.Dataset) error {
	var issues []string
	add := func(format string, args ...any) {
		if len(issues) < maxDatasetIssues {
			issues = append(issues, fmt.Sprintf(format, args...))
		}
	}

	checkNamed := func(table string, id int64, name string) {
		if id < 0 {
			add("%s: negative id %d", table, id)
		}
		if strings.TrimSpace(name) == "" {
			add("%s %d: empty name", table, id)
		}
	}

	for _, m := range ds.Manufacturers {
		checkNamed("manufacturer", m.ID, m.Name)
	}
	for _, d := range ds.Diseases {
		checkNamed("disease", d.ID, d.Name)
	}
	for _, g := range ds.Generics {
		checkNamed("generic", g.ID, g.Name)
		if g.Price != nil && *g.Price < 0 {
			add("generic %d: negative price", g.ID)
		}
	}
	for _, d := range ds.Drugs {
		checkNamed("drug", d.ID, d.Name)
		if d.Price != nil && *d.Price < 0 {
			add("drug %d: negative price", d.ID)
		}
	}
	for _, a := range ds.DrugAlts {
		if a.DrugID <= 0 || a.GenID <= 0 {
			add("drug_alt (%d, %d): ids must be positive", a.DrugID, a.GenID)
		}
	}
	for _, t := range ds.Treatments {
		if t.DiseaseID <= 0 || t.DrugID <= 0 || t.GenID <= 0 {
			add("treatment (%d, %d, %d): ids must be positive", t.DiseaseID, t.DrugID, t.GenID)
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return invalid("dataset rejected: %s", strings.Join(issues, "; "))
}

// Report builds the integrity report and logs every gap it finds
func (v *DataValidatorImpl) Report(facts entities.IntegrityFacts) *interfaces.IntegrityReport {
	report := &interfaces.IntegrityReport{
		DrugsWithoutTreatment:    facts.DrugsWithoutTreatment,
		DrugsWithoutManufacturer: facts.DrugsWithoutManufacturer,
		GenericsWithoutDrug:      facts.GenericsWithoutDrug,
		UnlinkedTreatments:       facts.UnlinkedTreatments,
		UnlinkedSample:           facts.UnlinkedSample,
		Warnings:                 []string{},
	}
	if report.UnlinkedSample == nil {
		report.UnlinkedSample = []entities.Treatment{}
	}

	if facts.DrugsWithoutTreatment > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d drugs have no treatment and are invisible to every search", facts.DrugsWithoutTreatment))
	}
	if facts.DrugsWithoutManufacturer > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d drugs have no manufacturer and are excluded from drug search", facts.DrugsWithoutManufacturer))
	}
	if facts.GenericsWithoutDrug > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d generics are not an alternative of any drug", facts.GenericsWithoutDrug))
	}
	if facts.UnlinkedTreatments > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d treatments name a drug/generic pair missing from DrugAlt", facts.UnlinkedTreatments))
	}

	report.Healthy = len(report.Warnings) == 0
	for _, w := range report.Warnings {
		logging.Warn("Catalog integrity: " + w)
	}
	return report
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
