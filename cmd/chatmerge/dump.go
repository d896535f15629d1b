package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/render"
	"github.com/Zuo-Peng/chatmerge/internal/search"
)

func dumpCmd() *cobra.Command {
	var sources []string
	var asJSON, asYAML bool
	var pattern string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every consolidated message in id order",
		Long: `Print every consolidated message in id order. The default text format is
one tab-separated line per message: id, time, sender, tags, text.`,
		Args: cobra.NoArgs,
	}
	inRange := rangeFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		keep, err := inRange()
		if err != nil {
			return err
		}

		snap, err := a.snapshot(cmd.Context(), sources)
		if err != nil {
			return err
		}
		st := snap.Store.Filter(keep)
		if pattern != "" {
			if st, err = search.Grep(st, pattern); err != nil {
				return err
			}
		}
		if snap.Store.Len() == 0 {
			return errNoMessages
		}

		format := render.FormatText
		switch {
		case asJSON:
			format = render.FormatJSON
		case asYAML:
			format = render.FormatYAML
		}
		return render.Dump(cmd.OutOrStdout(), st, format)
	}

	sourceFlags(cmd, &sources)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Dump as a JSON array")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Dump as a YAML list")
	cmd.Flags().StringVar(&pattern, "search", "", "Only dump messages whose text matches this regex")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	return cmd
}
