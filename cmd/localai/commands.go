package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/innerline/local-ai-packaged/internal/shell/journal"
)

func newDownCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the project's containers",
		Long: `Tears down everything under the shared compose project, scoped by the
selected profile. Retries once after removing stray containers when the
teardown fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.pipeline().Down(cmd.Context()); err != nil {
				app.logger.Error("teardown failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func newCleanupCommand(opts *rootOptions) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stray and conflicting containers",
		Long: `Shows the conflict inventory, then removes leftover app containers and
running conflict-prone containers. With --deep it sweeps every known
container name across both stacks and prunes unused networks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.pipeline().Cleanup(cmd.Context(), deep); err != nil {
				app.logger.Error("cleanup finished with errors", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false,
		"sweep every known container name and prune unused networks")
	return cmd
}

func newDoctorCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run read-only preflight checks",
		Long: `Reports what the next bootstrap would find: docker daemon reachability,
env file completeness, compose file validity, the SearXNG secret state,
the cap_drop posture, and any conflicting containers. Changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.pipeline().Doctor(cmd.Context())
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bootstrap runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.journal.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			printRuns(runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "maximum runs to show")
	return cmd
}

func printRuns(runs []journal.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "STARTED\tPROFILE\tENV\tPHASE\tOUTCOME\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Profile,
			r.Environment,
			r.Phase,
			r.Outcome,
			formatDuration(r),
			firstLine(r.Error),
		)
	}
}

func formatDuration(r journal.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration.Truncate(10 * time.Millisecond).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("localai %s (built %s)\n", Version, BuildTime)
		},
	}
}
