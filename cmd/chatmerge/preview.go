package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/render"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func previewCmd() *cobra.Command {
	var context int
	var query string

	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Show a message with the conversation around it",
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

			out, _, err := render.RenderThread(db, id, render.Options{
				Context: context,
				Query:   query,
			})
			if err != nil {
				return err
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&context, "context", 10, "Messages before/after the hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")

	return cmd
}
