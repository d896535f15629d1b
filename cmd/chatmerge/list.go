package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/tui"
)

func listCmd() *cobra.Command {
	var filters searchFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all messages, newest first",
		Long:  `Opens a TUI panel showing cached messages newest first. Type to search their text.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			opts, err := filters.options()
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			a.refresh(cmd.Context(), db)

			return tui.RunList(db, opts)
		},
	}

	filters.register(cmd, 0)
	return cmd
}
