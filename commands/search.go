package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/store"
)

var (
	// Search flags
	searchFrom    int64
	searchCompact bool
	searchMin     int
)

// searchCmd runs the API searches from the command line
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a search against the catalog",
	Long: `Run one of the API searches and print the page as JSON, with the
id_from value of the next page.

Examples:
  drugbase search drug Acu
  drugbase search disease Flu --from 8 --compact
  drugbase search multi --min 3
  drugbase search describe Acuvir`,
}

var searchDrugCmd = &cobra.Command{
	Use:   "drug <prefix>",
	Short: "Drugs whose name starts with prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.DrugSearch(cmd.Context(), searchFrom, args[0], searchLimit())
		if err != nil {
			return err
		}
		return printPage(cmd, rows)
	},
}

var searchDiseaseCmd = &cobra.Command{
	Use:   "disease <prefix>",
	Short: "Treatments of diseases whose name starts with prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.DiseaseSearch(cmd.Context(), searchFrom, args[0], searchLimit())
		if err != nil {
			return err
		}
		return printPage(cmd, rows)
	},
}

var searchMultiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Drugs treating several distinct diseases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.MultiDiseaseTreatment(cmd.Context(), searchFrom, searchMin)
		if err != nil {
			return err
		}
		return printPage(cmd, rows)
	},
}

var searchDescribeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Purpose of the drugs with this exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		purposes, err := st.DrugDescription(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string][]string{"data": purposes})
	},
}

func init() {
	searchCmd.PersistentFlags().Int64Var(&searchFrom, "from", 0, "Largest drug id of the previous page")
	searchCmd.PersistentFlags().BoolVar(&searchCompact, "compact", false, fmt.Sprintf("Use the compact page size (%d rows)", store.CompactPageSize))
	searchMultiCmd.Flags().IntVar(&searchMin, "min", store.DefaultMinDiseases, "Minimum number of distinct diseases")

	searchCmd.AddCommand(searchDrugCmd, searchDiseaseCmd, searchMultiCmd, searchDescribeCmd)
	rootCmd.AddCommand(searchCmd)
}

func searchLimit() int {
	if searchCompact {
		return store.CompactPageSize
	}
	return store.PageSize
}

type page[T any] struct {
	Data       []T   `json:"data"`
	NextIDFrom int64 `json:"next_id_from"`
}

func printPage[T entities.Keyed](cmd *cobra.Command, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	return printJSON(cmd.OutOrStdout(), page[T]{Data: rows, NextIDFrom: entities.NextIDFrom(searchFrom, rows)})
}
