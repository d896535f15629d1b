package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/chatmerge/internal/config"
	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/logging"
	"github.com/Zuo-Peng/chatmerge/internal/metrics"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

var verbose bool

var errNoMessages = errors.New("no messages")

// app carries what every subcommand needs: the loaded config and a logger.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log, err := logging.New(os.Stderr, level)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) indexOptions() index.Options {
	return index.Options{
		Workers:       a.cfg.Workers,
		SkipMalformed: a.cfg.SkipMalformed,
		Logger:        a.log,
	}
}

func (a *app) openDB() (*index.DB, error) {
	db, err := index.OpenDB(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// refresh brings the cache up to date with the configured sources. Failures
// are logged so browsing still works on the last good cache.
func (a *app) refresh(ctx context.Context, db *index.DB) {
	if len(a.cfg.Sources) == 0 {
		return
	}
	stats, err := index.IndexAll(ctx, db, a.cfg.Sources, a.indexOptions())
	if err != nil {
		a.log.Warn().Err(err).Msg("refresh failed, using cached messages")
		return
	}
	a.log.Debug().Stringer("stats", stats).Msg("cache refreshed")
	if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn().Err(err).Msg("write metrics")
	}
}

// snapshot consolidates sources directly when any are given, and otherwise
// reads the cache after refreshing it from the configured sources.
func (a *app) snapshot(ctx context.Context, sources []string) (*index.Snapshot, error) {
	if len(sources) > 0 {
		snap, stats, err := index.Build(ctx, sources, a.indexOptions())
		if err != nil {
			return nil, err
		}
		a.log.Debug().Stringer("stats", stats).Msg("built")
		return snap, nil
	}

	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	a.refresh(ctx, db)
	return db.Load()
}

// sourceFlags registers the source overrides shared by index, dump and report.
func sourceFlags(cmd *cobra.Command, sources *[]string) {
	cmd.Flags().StringSliceVar(sources, "sources", nil, "Telegram exports: result.json files or export directories (overrides config)")
}

// rangeFlags registers --not-before/--not-after and returns a resolver for them.
func rangeFlags(cmd *cobra.Command) func() (func(*store.Message) bool, error) {
	var notBefore, notAfter string
	cmd.Flags().StringVar(&notBefore, "not-before", "", "Earliest message to keep (YYYY-MM-DD or unix seconds)")
	cmd.Flags().StringVar(&notAfter, "not-after", "", "Latest message to keep (YYYY-MM-DD or unix seconds)")
	return func() (func(*store.Message) bool, error) {
		from, err := parseDate(notBefore)
		if err != nil {
			return nil, fmt.Errorf("--not-before: %w", err)
		}
		to, err := parseDate(notAfter)
		if err != nil {
			return nil, fmt.Errorf("--not-after: %w", err)
		}
		return store.InRange(from, to), nil
	}
}
