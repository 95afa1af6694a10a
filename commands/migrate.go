package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd creates the tables and indexes
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema",
	Long: `Create the catalog tables and their indexes. Existing tables are left
untouched, so the command can run on every deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", st.Dialect())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
