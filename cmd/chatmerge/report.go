package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/report"
)

func reportCmd() *cobra.Command {
	var sources []string
	var topN int
	var perDay, neverTalkers bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize who talks, replies, links and posts media",
		Args:  cobra.NoArgs,
	}
	inRange := rangeFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("topn") {
			topN = a.cfg.TopN
		}
		keep, err := inRange()
		if err != nil {
			return err
		}

		snap, err := a.snapshot(cmd.Context(), sources)
		if err != nil {
			return err
		}
		if snap.Store.Len() == 0 {
			return errNoMessages
		}
		st := snap.Store.Filter(keep)

		out := cmd.OutOrStdout()
		report.Build(st, topN).Write(out)
		if perDay {
			fmt.Fprintln(out)
			report.PerDay(st).Write(out)
		}
		if neverTalkers {
			fmt.Fprintln(out)
			report.WriteSilentJoiners(out, report.SilentJoiners(st, snap.Actions))
		}
		return nil
	}

	sourceFlags(cmd, &sources)
	cmd.Flags().IntVar(&topN, "topn", 20, "Entries in each top list (default from config)")
	cmd.Flags().BoolVar(&perDay, "perday", false, "Also print talkers per day")
	cmd.Flags().BoolVar(&neverTalkers, "nevertalkers", false, "Also list accounts that joined by link and never wrote")

	return cmd
}
