package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/chatmerge/internal/render"
	"github.com/Zuo-Peng/chatmerge/internal/search"
	"github.com/Zuo-Peng/chatmerge/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func oneLine(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}

// searchFilters holds the filter flags shared by search and list.
type searchFilters struct {
	sender, since, until string
	limit                int
}

func (f *searchFilters) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.sender, "sender", "", "Only messages from this sender name or id")
	cmd.Flags().StringVar(&f.since, "since", "", "Only messages from this date on (YYYY-MM-DD or unix seconds)")
	cmd.Flags().StringVar(&f.until, "until", "", "Only messages up to this date (YYYY-MM-DD or unix seconds)")
	cmd.Flags().IntVar(&f.limit, "limit", defaultLimit, "Max results")
}

func (f *searchFilters) options() (search.Options, error) {
	since, err := parseDate(f.since)
	if err != nil {
		return search.Options{}, fmt.Errorf("--since: %w", err)
	}
	until, err := parseDate(f.until)
	if err != nil {
		return search.Options{}, fmt.Errorf("--until: %w", err)
	}
	return search.Options{Sender: f.sender, Since: since, Until: until, Limit: f.limit}, nil
}

func searchCmd() *cobra.Command {
	var filters searchFilters

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across the consolidated messages",
		Long: `Search cached messages using FTS5. On a terminal this opens the browser;
piped output is TSV for fzf integration:
  id, time, sender, snippet

Recommended shell function (add to .zshrc):
  cmf() {
    chatmerge search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=2.. \
      --preview 'chatmerge preview {1} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --bind 'enter:execute(chatmerge open {1})'
  }`,
		Args: cobra.ExactArgs(1),
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

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(db, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				var ts *int64
				if r.Timestamp != 0 {
					ts = &r.Timestamp
				}
				name := r.SenderName
				if name == "" {
					name = "(unknown)"
				}
				// first field (id) stays plain for fzf {1}
				fmt.Printf("%d\t%s%s%s\t%s%s%s\t%s\n",
					r.ID,
					sColorDim, render.FormatTime(ts), sColorReset,
					sColorBlue, oneLine(name), sColorReset,
					colorizeSnippet(oneLine(r.Snippet)),
				)
			}
			return nil
		},
	}

	filters.register(cmd, 100)
	return cmd
}
