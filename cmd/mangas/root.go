package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/kerbaras/mangadex-dl/pkg/app"
	"github.com/kerbaras/mangadex-dl/pkg/app/styles"
	"github.com/kerbaras/mangadex-dl/pkg/config"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/logging"
	"github.com/kerbaras/mangadex-dl/pkg/services"
	"github.com/kerbaras/mangadex-dl/pkg/sources"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type downloadFlags struct {
	url      string
	id       string
	quality  string
	skip     bool
	output   string
	language string
	tui      bool
	epub     bool
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		flags      downloadFlags
	)

	rootCmd := &cobra.Command{
		Use:   "mangadex-dl",
		Short: "Download manga chapters from MangaDex",
		Long: "Download every chapter of a MangaDex title, one page at a time, into\n" +
			"Mangadex-{title}-{id}/MDX-{chapter}-{chapterId}/ under the output directory.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, configPath, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	f := rootCmd.Flags()
	f.StringVarP(&flags.url, "url", "u", "", "Target MangaDex title url")
	f.StringVarP(&flags.id, "id", "i", "", "Target MangaDex title id")
	f.StringVarP(&flags.quality, "quality", "q", "", "Image quality: data (0) or data-saver (1)")
	f.BoolVarP(&flags.skip, "skip", "s", true, "Skip pages that already exist on disk")
	f.StringVarP(&flags.output, "output", "o", "", "Directory to download into")
	f.StringVarP(&flags.language, "language", "l", "", "Chapter translation language")
	f.BoolVar(&flags.tui, "tui", false, "Show progress in an interactive view")
	f.BoolVar(&flags.epub, "epub", false, "Pack the downloaded chapters into an EPUB")

	rootCmd.AddCommand(newSearchCmd(&configPath))
	rootCmd.AddCommand(newHistoryCmd(&configPath))
	rootCmd.AddCommand(newVerifyCmd())
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), styles.StatusError.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags downloadFlags) error {
	if cmd.Flags().Changed("quality") {
		q, err := data.ParseQuality(flags.quality)
		if err != nil {
			return err
		}
		cfg.Download.Quality = string(q)
	}
	if cmd.Flags().Changed("skip") {
		cfg.Download.SkipExisting = flags.skip
	}
	if flags.output != "" {
		cfg.Download.Dir = flags.output
	}
	if flags.language != "" {
		cfg.API.Language = flags.language
	}
	return nil
}

func runDownload(cmd *cobra.Command, configPath string, flags downloadFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, flags); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "url=%q id=%q quality=%s skip=%t output=%q language=%s\n",
		flags.url, flags.id, cfg.Quality(), cfg.Download.SkipExisting, cfg.Download.Dir, cfg.API.Language)

	if flags.url == "" && flags.id == "" {
		fmt.Fprintln(out, "No url or ID specified, exiting.")
		return nil
	}

	titleID := flags.id
	if titleID == "" {
		if titleID, err = sources.ParseTitleURL(flags.url); err != nil {
			return err
		}
	}

	logger, closeLog, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closeLog()

	var epubPath string
	job := func(ctx context.Context, onProgress func(services.DownloadProgress)) error {
		controller, err := services.NewMangaController(cfg, logger, onProgress)
		if err != nil {
			return err
		}
		defer controller.Close()

		logger.Info("Starting run", zap.String("run", controller.RunID()), zap.String("manga", titleID))
		_, epubPath, err = controller.DownloadManga(ctx, titleID, cfg.Quality(), cfg.Download.SkipExisting, flags.epub)
		return err
	}

	if flags.tui {
		err = app.NewApp(job).Run(cmd.Context())
	} else {
		err = job(cmd.Context(), printProgress(out))
	}
	if err != nil {
		return err
	}

	if epubPath != "" {
		fmt.Fprintln(out, styles.StatusCompleted.Render("EPUB written to "+epubPath))
	}
	return nil
}

// printProgress writes one line per chapter event; page events stay in the
// log file.
func printProgress(out io.Writer) func(services.DownloadProgress) {
	return func(p services.DownloadProgress) {
		switch p.Status {
		case "resolving":
			name := p.ChapterTitle
			if name == "" {
				name = p.ChapterID
			}
			fmt.Fprintf(out, "%s %s\n",
				styles.StatusDownloading.Render(fmt.Sprintf("%d of %d", p.ChapterIndex, p.ChapterCount)),
				name)
		case "retrying":
			fmt.Fprintln(out, styles.StatusRetrying.Render(
				fmt.Sprintf("  page %d/%d timed out, retrying", p.CurrentPage, p.TotalPages)))
		case "complete":
			fmt.Fprintln(out, styles.MutedStyle.Render(fmt.Sprintf("  %d pages", p.TotalPages)))
		case "error":
			fmt.Fprintln(out, styles.StatusError.Render(fmt.Sprintf("  %s", p.Error)))
		case "done":
			fmt.Fprintln(out, styles.StatusCompleted.Render(
				fmt.Sprintf("Finished %s (%d chapters)", p.TitleName, p.ChapterCount)))
		}
	}
}
