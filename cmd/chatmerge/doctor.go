package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/config"
	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify sources, cache, FTS5, and show stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			cfgPath, _ := config.Path()
			fmt.Println("=== Config ===")
			if _, err := os.Stat(cfgPath); err != nil {
				fmt.Printf("  %s (NOT FOUND, using defaults)\n", cfgPath)
			} else {
				fmt.Printf("  %s (OK)\n", cfgPath)
			}

			fmt.Println("\n=== Sources ===")
			if len(a.cfg.Sources) == 0 {
				fmt.Println("  none configured")
			}
			for _, p := range a.cfg.Sources {
				checkSource(p)
			}

			fmt.Println("\n=== Cache ===")
			fmt.Printf("  Path: %s\n", a.cfg.DBPath)
			if _, err := os.Stat(a.cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'chatmerge index' first)")
				return nil
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			messageCount, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			senderCount, err := db.SenderCount()
			if err != nil {
				return fmt.Errorf("count senders: %w", err)
			}
			actionCount, err := db.ActionCount()
			if err != nil {
				return fmt.Errorf("count actions: %w", err)
			}

			fmt.Printf("  Messages: %s\n", humanize.Comma(int64(messageCount)))
			fmt.Printf("  Senders:  %s\n", humanize.Comma(int64(senderCount)))
			fmt.Printf("  Actions:  %s\n", humanize.Comma(int64(actionCount)))
			if id, _ := db.Meta("build_id"); id != "" {
				fmt.Printf("  Build:    %s\n", id)
			}
			if at, _ := db.Meta("built_at"); at != "" {
				if sec, err := strconv.ParseInt(at, 10, 64); err == nil {
					fmt.Printf("  Built:    %s\n", humanize.Time(time.Unix(sec, 0)))
				}
			}
			if len(a.cfg.Sources) > 0 {
				checkFreshness(db, a.cfg.Sources)
			}

			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == messageCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", messageCount, ftsCount)
				}
			}

			if info, err := os.Stat(a.cfg.DBPath); err == nil {
				fmt.Printf("\n=== Cache Size: %s ===\n", humanize.Bytes(uint64(info.Size())))
			}

			return nil
		},
	}
}

func checkSource(path string) {
	src, err := scan.Detect(path)
	if err != nil {
		fmt.Printf("  %s (ERROR: %v)\n", path, err)
		return
	}
	fmt.Printf("  %s (%s, %d files, %s, modified %s)\n",
		path, src.Kind, len(src.Files), humanize.Bytes(uint64(src.Size)), humanize.Time(src.Mtime))
}

func checkFreshness(db *index.DB, paths []string) {
	sources, err := scan.DetectAll(paths)
	if err != nil {
		fmt.Printf("  Status: sources unavailable (%v)\n", err)
		return
	}
	fresh, err := db.Fresh(sources)
	switch {
	case err != nil:
		fmt.Printf("  Status: error (%v)\n", err)
	case fresh:
		fmt.Println("  Status: OK (up to date)")
	default:
		fmt.Println("  Status: STALE (run 'chatmerge index')")
	}
}
