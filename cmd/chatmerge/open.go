package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/open"
)

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open the export a message came from in $EDITOR at its line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenMessage(db, id)
		},
	}
}
