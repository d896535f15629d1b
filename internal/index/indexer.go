package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/chatmerge/internal/metrics"
	"github.com/Zuo-Peng/chatmerge/internal/parse"
	"github.com/Zuo-Peng/chatmerge/internal/scan"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

// Snapshot is the consolidated result of a build, and what the cache holds.
type Snapshot struct {
	Store   *store.Store
	Actions []store.Action
	Origins map[int64]parse.Origin
	Sources []scan.Source
	BuildID string
	BuiltAt time.Time
}

type Options struct {
	Workers       int  // parallel extractions, <= 0 means GOMAXPROCS
	SkipMalformed bool // leave malformed exports out instead of failing
	Force         bool // rebuild even if the cache is fresh
	Converter     parse.TextConverter
	Logger        zerolog.Logger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

type Stats struct {
	Scanned   int
	Extracted int
	Skipped   int
	Messages  int
	Conflicts int
	Filled    int
	Fresh     bool
}

func (s Stats) String() string {
	if s.Fresh {
		return fmt.Sprintf("scanned=%d up to date", s.Scanned)
	}
	return fmt.Sprintf("scanned=%d extracted=%d skipped=%d messages=%d conflicts=%d filled=%d",
		s.Scanned, s.Extracted, s.Skipped, s.Messages, s.Conflicts, s.Filled)
}

// IndexAll builds the consolidated store from paths and caches it in db,
// unless the cache already reflects the same unchanged sources.
func IndexAll(ctx context.Context, db *DB, paths []string, opts Options) (Stats, error) {
	sources, err := scan.DetectAll(paths)
	if err != nil {
		return Stats{Scanned: len(sources)}, fmt.Errorf("scan: %w", err)
	}

	if !opts.Force {
		fresh, err := db.Fresh(sources)
		if err != nil {
			return Stats{}, err
		}
		if fresh {
			return Stats{Scanned: len(sources), Fresh: true}, nil
		}
	}

	snap, stats, err := BuildSources(ctx, sources, opts)
	if err != nil {
		return stats, err
	}
	if err := db.Save(snap); err != nil {
		return stats, fmt.Errorf("save: %w", err)
	}
	return stats, nil
}

// Build detects every path and consolidates them without touching the cache.
func Build(ctx context.Context, paths []string, opts Options) (*Snapshot, Stats, error) {
	sources, err := scan.DetectAll(paths)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("scan: %w", err)
	}
	return BuildSources(ctx, sources, opts)
}

// BuildSources extracts every source in parallel, then folds the stores
// oldest first into one and backfills missing timestamps.
func BuildSources(ctx context.Context, sources []scan.Source, opts Options) (*Snapshot, Stats, error) {
	start := time.Now()
	log := opts.Logger
	stats := Stats{Scanned: len(sources)}

	results := make([]*parse.Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := extract(src, opts)
			if err != nil {
				if opts.SkipMalformed && errors.Is(err, parse.ErrMalformedExport) {
					log.Warn().Err(err).Str("source", src.Path).Msg("skipping malformed export")
					metrics.SourcesSkipped.Inc()
					return nil
				}
				return fmt.Errorf("extract %s: %w", src.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var extracted []*parse.Result
	for _, r := range results {
		if r == nil {
			stats.Skipped++
			continue
		}
		extracted = append(extracted, r)
	}
	stats.Extracted = len(extracted)

	// oldest first, so later sources win genuine conflicts
	sort.SliceStable(extracted, func(i, j int) bool {
		a, b := extracted[i], extracted[j]
		if a.Store.Earliest != b.Store.Earliest {
			return a.Store.Earliest < b.Store.Earliest
		}
		if a.Store.Latest != b.Store.Latest {
			return a.Store.Latest < b.Store.Latest
		}
		return a.Meta.Path < b.Meta.Path
	})

	snap := &Snapshot{
		Store:   store.New(),
		Origins: make(map[int64]parse.Origin),
		BuildID: uuid.NewString(),
		BuiltAt: time.Now(),
	}
	onConflict := store.OnConflict(func(c store.Conflict) {
		stats.Conflicts++
		metrics.MergeConflicts.WithLabelValues(c.Field).Inc()
		log.Debug().Int64("id", c.ID).Str("field", c.Field).
			Interface("previous", c.Previous).Interface("incoming", c.Incoming).
			Msg("merge conflict")
	})

	var actions [][]store.Action
	for _, r := range extracted {
		snap.Store.Merge(r.Store, onConflict)
		for id, o := range r.Origins {
			snap.Origins[id] = o
		}
		actions = append(actions, r.Actions)
		snap.Sources = append(snap.Sources, sourceOf(r.Meta))
		log.Debug().Str("source", r.Meta.Path).Int("messages", snap.Store.Len()).Msg("folded")
	}
	snap.Actions = unionActions(actions...)

	stats.Filled = snap.Store.Sanitize()
	stats.Messages = snap.Store.Len()

	metrics.TimestampsFilled.Add(float64(stats.Filled))
	metrics.StoreMessages.Set(float64(stats.Messages))
	metrics.BuildDuration.Observe(time.Since(start).Seconds())

	log.Info().Str("build_id", snap.BuildID).Int("sources", stats.Extracted).
		Int("messages", stats.Messages).Int("conflicts", stats.Conflicts).
		Dur("took", time.Since(start)).Msg("build finished")
	return snap, stats, nil
}

func extract(src scan.Source, opts Options) (*parse.Result, error) {
	log := opts.Logger.With().Str("source", src.Path).Str("kind", src.Kind).Logger()

	var res *parse.Result
	var err error
	switch src.Kind {
	case scan.KindJSON:
		res, err = parse.ParseJSON(src.Files[0], log)
	case scan.KindHTML:
		p := parse.NewHTMLParser(log)
		if opts.Converter != nil {
			p.Converter = opts.Converter
		}
		res, err = p.ParseFiles(src.Files)
	default:
		return nil, fmt.Errorf("unknown source kind: %s", src.Kind)
	}
	if err != nil {
		return nil, err
	}

	res.Meta = parse.SourceMeta{
		Path:  src.Path,
		Kind:  src.Kind,
		Files: src.Files,
		Mtime: src.Mtime,
		Size:  src.Size,
	}
	metrics.MessagesExtracted.WithLabelValues(src.Kind).Add(float64(res.Store.Len()))
	log.Info().Int("messages", res.Store.Len()).Int("actions", len(res.Actions)).Msg("extracted")
	return res, nil
}

func sourceOf(m parse.SourceMeta) scan.Source {
	return scan.Source{Path: m.Path, Kind: m.Kind, Files: m.Files, Mtime: m.Mtime, Size: m.Size}
}

type actionKey struct {
	kind    string
	actorID string
	ts      int64
}

// unionActions keeps the first occurrence of every (kind, actor id, time)
// and orders the result by time.
func unionActions(lists ...[]store.Action) []store.Action {
	seen := make(map[actionKey]struct{})
	var out []store.Action
	for _, list := range lists {
		for _, a := range list {
			k := actionKey{a.Kind, a.ActorID, a.Timestamp}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
