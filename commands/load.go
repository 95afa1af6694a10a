package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/ingest"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/validation"
)

var (
	// Seed flags
	seedValue      uint64
	seedDrugs      int
	seedGenerics   int
	seedTreatments int

	// Ingest flags
	fdaProducts string

	// Check flags
	strict bool
)

// seedCmd loads synthetic fixtures
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load synthetic fixtures",
	Long: `Load a deterministic synthetic catalog: five manufacturers, six diseases,
brand drugs and generics with generated names, one generic per drug and
random treatments. Running it twice with the same seed inserts nothing new.

Examples:
  drugbase seed
  drugbase seed --seed 7 --drugs 1000 --generics 1000 --treatments 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sizes := ingest.Sizes{Drugs: seedDrugs, Generics: seedGenerics, Treatments: seedTreatments}
		return runLoad(cmd, func(loader *ingest.Loader) interfaces.Refresher {
			return ingest.NewFixtureRefresher(seedValue, sizes, loader)
		})
	},
}

// ingestCmd loads a directory of table files
var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load tab-separated table files",
	Long: `Load manufacturers.tsv, diseases.tsv, drugs.tsv, generics.tsv,
drug_alts.tsv and treatments.tsv from a directory (INGEST_DIR by default).
Rows that already exist are skipped.

With --fda the brand drugs are read from an FDA products export instead
(ApplNo becomes the drug id, DrugName its name, price 0, purpose "info",
no manufacturer).

Examples:
  drugbase ingest ./data
  drugbase ingest --fda ./Products.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if fdaProducts != "" {
			if len(args) > 0 {
				return fmt.Errorf("--fda cannot be combined with a directory")
			}
			return runLoad(cmd, func(loader *ingest.Loader) interfaces.Refresher {
				return ingest.NewFDARefresher(fdaProducts, loader)
			})
		}

		dir := cfg.IngestDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory given and INGEST_DIR is not set")
		}
		return runLoad(cmd, func(loader *ingest.Loader) interfaces.Refresher {
			return ingest.NewDirRefresher(dir, loader)
		})
	},
}

// checkCmd prints the integrity report
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print the catalog integrity report",
	Long: `Print counts of drugs without treatments or manufacturer, generics
without a brand drug and treatments whose drug/generic pair is not linked.

With --strict the command fails when the report is not healthy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cat.Close()

		loader := ingest.NewLoader(cat.store, validation.NewDataValidator(), nil)
		report, err := loader.Check(cmd.Context())
		if err != nil {
			return err
		}
		counts, err := cat.store.Counts(cmd.Context())
		if err != nil {
			return err
		}

		if err := printJSON(cmd.OutOrStdout(), map[string]any{"counts": counts, "integrity": report}); err != nil {
			return err
		}
		if strict && !report.Healthy {
			return fmt.Errorf("catalog integrity check failed: %d warnings", len(report.Warnings))
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 1, "Random seed")
	seedCmd.Flags().IntVar(&seedDrugs, "drugs", ingest.DefaultSizes.Drugs, "Number of brand drugs")
	seedCmd.Flags().IntVar(&seedGenerics, "generics", ingest.DefaultSizes.Generics, "Number of generics")
	seedCmd.Flags().IntVar(&seedTreatments, "treatments", ingest.DefaultSizes.Treatments, "Number of random treatments")

	ingestCmd.Flags().StringVar(&fdaProducts, "fda", "", "Load brand drugs from an FDA products export ("+ingest.FDAProductsFile+")")

	checkCmd.Flags().BoolVar(&strict, "strict", false, "Fail when the report has warnings")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(checkCmd)
}

// runLoad opens the catalog and runs the refresher built by source. A shared
// cache is purged so running servers stop serving the old pages.
func runLoad(cmd *cobra.Command, source func(*ingest.Loader) interfaces.Refresher) error {
	cat, err := openCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	loader := ingest.NewLoader(cat.store, validation.NewDataValidator(), cat.invalidator())
	stats, err := source(loader).Refresh(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]entities.LoadStats{"inserted": stats})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
