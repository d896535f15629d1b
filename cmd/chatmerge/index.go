package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/metrics"
)

func indexCmd() *cobra.Command {
	var sources []string
	var skipMalformed, force bool
	var workers int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Consolidate the configured exports into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sources") {
				a.cfg.Sources = sources
			}
			if cmd.Flags().Changed("skip-malformed") {
				a.cfg.SkipMalformed = skipMalformed
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Workers = workers
			}
			if len(a.cfg.Sources) == 0 {
				return fmt.Errorf("no sources: set sources in config or pass --sources")
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Consolidating %d sources...\n", len(a.cfg.Sources))
			for _, s := range a.cfg.Sources {
				fmt.Fprintf(os.Stderr, "  %s\n", s)
			}

			opts := a.indexOptions()
			opts.Force = force
			start := time.Now()
			stats, err := index.IndexAll(cmd.Context(), db, a.cfg.Sources, opts)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Done in %s. %s\n", time.Since(start).Round(time.Millisecond), stats)
			return nil
		},
	}

	sourceFlags(cmd, &sources)
	cmd.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "Leave out malformed exports instead of failing")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the cache is up to date")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel extractions (0 = number of CPUs)")

	return cmd
}
