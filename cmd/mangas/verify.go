package cmd

import (
	"fmt"

	"github.com/kerbaras/mangadex-dl/pkg/app/styles"
	"github.com/kerbaras/mangadex-dl/pkg/integrations"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [title-dir]",
		Short: "Check downloaded pages",
		Long:  "Decode every page under a title directory and list empty or damaged files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := integrations.InspectDir(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, issue := range report.Issues {
				fmt.Fprintf(out, "%s %s\n", styles.StatusError.Render(issue.Path), issue.Reason)
			}
			fmt.Fprintf(out, "%d pages checked, %d damaged\n", report.Checked, len(report.Issues))

			if len(report.Issues) > 0 {
				return fmt.Errorf("%d damaged pages under %s", len(report.Issues), args[0])
			}
			return nil
		},
	}
}
