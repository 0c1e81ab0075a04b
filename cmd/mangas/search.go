package cmd

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mangadex-dl/pkg/app/components"
	"github.com/kerbaras/mangadex-dl/pkg/config"
	"github.com/kerbaras/mangadex-dl/pkg/services"
	"github.com/spf13/cobra"
)

func newSearchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search for manga",
		Long:  "Search MangaDex by title and list the ids to pass to --id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			controller, err := services.NewMangaController(cfg, nil, nil)
			if err != nil {
				return err
			}
			defer controller.Close()

			results, err := controller.SearchManga(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			fmt.Fprintln(out, components.ResultsTable(results))
			return nil
		},
	}
}
