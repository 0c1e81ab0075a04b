package cmd

import (
	"errors"
	"fmt"

	"github.com/kerbaras/mangadex-dl/pkg/app/components"
	"github.com/kerbaras/mangadex-dl/pkg/config"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/spf13/cobra"
)

var errLedgerDisabled = errors.New("ledger disabled: set ledger.path in the config file")

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded download runs",
		Long:  "Display per-run page totals from the attempt ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return errLedgerDisabled
			}

			repo, err := data.NewDuckDBRepository(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			runs, err := repo.ListRuns(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "\nRuns (%d)\n\n", len(runs))
			fmt.Fprintln(out, components.RunsTable(runs).View())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
