package store

import "slices"

// nullWords are textual values exports use for "no value".
var nullWords = map[string]bool{
	"null": true, "Null": true, "NULL": true,
	"none": true, "None": true, "NONE": true,
}

// IsNullString reports whether s counts as absent for merge precedence.
func IsNullString(s string) bool {
	return s == "" || nullWords[s]
}

func nullStrPtr(p *string) bool { return p == nil || IsNullString(*p) }
func nullIntPtr(p *int64) bool { return p == nil || *p == 0 }
func nullSlice[T any](v []T) bool { return len(v) == 0 }

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Conflict describes two sources holding different real values for a field.
// The incoming value has already been adopted when it is reported.
type Conflict struct {
	ID       int64
	Field    string
	Previous any
	Incoming any
}

type mergeConfig struct {
	onConflict func(Conflict)
}

type MergeOption func(*mergeConfig)

// OnConflict registers fn to observe resolved field conflicts.
func OnConflict(fn func(Conflict)) MergeOption {
	return func(c *mergeConfig) { c.onConflict = fn }
}

// Merge folds incoming into s. s must be the older (or equally trusted) store:
// on genuine disagreement incoming wins, except that a "Deleted Account" name
// never replaces a known one. Null-like incoming values never overwrite.
// Identity normalization and a bounds rescan run afterwards.
func (s *Store) Merge(incoming *Store, opts ...MergeOption) {
	var cfg mergeConfig
	for _, o := range opts {
		o(&cfg)
	}

	for _, id := range incoming.IDs() {
		in := incoming.Messages[id]
		cur, ok := s.Messages[id]
		if !ok {
			s.Messages[id] = in.Clone()
			continue
		}
		mergeMessage(cur, in, cfg.onConflict)
	}
	s.bySender = nil

	s.Normalize()
	s.RecomputeBounds()
}

func mergeMessage(cur, in *Message, report func(Conflict)) {
	conflict := func(field string, prev, next any) {
		if report != nil {
			report(Conflict{ID: cur.ID, Field: field, Previous: prev, Incoming: next})
		}
	}

	// display name: a deletion placeholder never erases a known name
	switch {
	case nullStrPtr(in.SenderName):
	case nullStrPtr(cur.SenderName):
		cur.SenderName = clonePtr(in.SenderName)
	case *cur.SenderName != *in.SenderName && *in.SenderName != DeletedAccount:
		cur.SenderName = clonePtr(in.SenderName)
	}

	cur.SenderID = pick("from_id", cur.SenderID, in.SenderID, nullStrPtr, eqPtr[string], clonePtr[string], conflict)
	cur.Timestamp = pick("timestamp", cur.Timestamp, in.Timestamp, nullIntPtr, eqPtr[int64], clonePtr[int64], conflict)
	cur.Text = pick("text", cur.Text, in.Text, IsNullString, eqComparable[string], same[string], conflict)
	cur.Media = pick("media", cur.Media, in.Media, IsNullString, eqComparable[string], same[string], conflict)
	cur.Mentions = pick("mentions", cur.Mentions, in.Mentions, nullSlice[string], slices.Equal[[]string], slices.Clone[[]string], conflict)
	cur.Links = pick("links", cur.Links, in.Links, nullSlice[string], slices.Equal[[]string], slices.Clone[[]string], conflict)
	cur.MessageLinks = pick("message_links", cur.MessageLinks, in.MessageLinks, nullSlice[string], slices.Equal[[]string], slices.Clone[[]string], conflict)
	cur.ReplyTo = pick("reply_to", cur.ReplyTo, in.ReplyTo, nullSlice[int64], slices.Equal[[]int64], slices.Clone[[]int64], conflict)
}

// pick resolves one field: incoming null-like keeps cur, cur null-like takes
// incoming, otherwise incoming wins and a differing pair is reported.
func pick[T any](
	field string,
	cur, in T,
	isNull func(T) bool,
	equal func(a, b T) bool,
	copyOf func(T) T,
	conflict func(field string, prev, next any),
) T {
	if isNull(in) {
		return cur
	}
	if isNull(cur) {
		return copyOf(in)
	}
	if !equal(cur, in) {
		conflict(field, cur, in)
	}
	return copyOf(in)
}

func eqComparable[T comparable](a, b T) bool { return a == b }
func same[T any](v T) T { return v }
