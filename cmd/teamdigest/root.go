package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lvanheel/teamdigest/internal/asana"
	"github.com/lvanheel/teamdigest/internal/config"
	"github.com/lvanheel/teamdigest/internal/sender"
	"github.com/lvanheel/teamdigest/internal/teamdigest"
)

var (
	configPath     string
	dryRun         bool
	verbose        bool
	numWindows     int
	ignoreProjects string
)

var rootCmd = &cobra.Command{
	Use:   "teamdigest",
	Short: "Publish team progress digests from Asana tasks",
	Long: `teamdigest pulls completed tasks from Asana, groups them by reporting
window and project, and publishes a status digest to the configured
channels (email, wiki, excel archive).

The default location for the config file is ~/.teamdigest.yaml; use
--config to point somewhere else.`,
	RunE: runDigest,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the config file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render reports to stdout instead of publishing them")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Turn on debug logging")
	rootCmd.Flags().IntVarP(&numWindows, "windows", "n", 1, "How many reporting windows back to generate")
	rootCmd.Flags().StringVar(&ignoreProjects, "ignore-projects", "", "Comma-separated projects to exclude (adds to the config)")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if extra := parseCommaList(ignoreProjects); len(extra) > 0 {
		for _, name := range cfg.ReportNames() {
			if rep := cfg.Reports[name]; rep != nil {
				rep.IgnoreProjects = append(rep.IgnoreProjects, extra...)
			}
		}
	}

	app := teamdigest.New(cfg, asana.NewSource(cfg.AsanaAPIKey), teamdigest.Options{
		DryRun:     dryRun,
		Verbose:    verbose,
		NumWindows: numWindows,
		Diag:       os.Stdout,
	})
	app.Progress = func(description string) func() {
		bar := newSpinner(description)
		return func() { finishBar(bar) }
	}

	results, err := app.Run(context.Background())
	printResults(results)
	return err
}

func printResults(results []sender.Result) {
	for _, r := range results {
		switch r.Status {
		case sender.StatusSent:
			color.Green("  sent    %-20s %s", r.Channel, r.Subject)
		case sender.StatusSkipped:
			color.Yellow("  skipped %-20s %s", r.Channel, r.Subject)
		case sender.StatusFailed:
			color.Red("  failed  %-20s %s: %v", r.Channel, r.Subject, r.Err)
		}
	}
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
