package report

import (
	"sort"
	"strings"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

// JoinByLink is the action kind recorded when someone joins through an invite link.
const JoinByLink = "join_group_by_link"

// unknownTarget names the author of a reply target missing from the store.
const unknownTarget = "Unknown"

type Entry struct {
	Name  string
	Count int
}

type Replier struct {
	Entry
	Top Entry // who they replied to most
}

type Report struct {
	Total        int
	Earliest     int64
	Latest       int64
	HasRange     bool
	Talkers      []Entry
	Repliers     []Replier
	RepliedTo    []Entry
	LinkPosters  []Entry
	MediaPosters []Entry
}

// HasLink reports whether m carries a link entity or a bare URL.
func HasLink(m *store.Message) bool {
	return len(m.Links) > 0 || strings.Contains(m.Text, "http://") || strings.Contains(m.Text, "https://")
}

func named(m *store.Message) bool {
	return !store.IsNullString(m.Name())
}

// Build computes the top-n tables over st.
func Build(st *store.Store, topN int) Report {
	r := Report{
		Total:    st.Len(),
		Earliest: st.Earliest,
		Latest:   st.Latest,
		HasRange: st.HasBounds(),
	}

	talkers := map[string]int{}
	repliers := map[string]int{}
	repliedTo := map[string]int{}
	links := map[string]int{}
	media := map[string]int{}

	for _, m := range st.Messages {
		if named(m) {
			name := m.Name()
			talkers[name]++
			if len(m.ReplyTo) > 0 {
				repliers[name]++
			}
			if HasLink(m) {
				links[name]++
			}
			if m.Media != "" {
				media[name]++
			}
		}
		for _, id := range m.ReplyTo {
			if target, ok := st.Get(id); ok && named(target) {
				repliedTo[target.Name()]++
			}
		}
	}

	r.Talkers = top(talkers, topN)
	r.RepliedTo = top(repliedTo, topN)
	r.LinkPosters = top(links, topN)
	r.MediaPosters = top(media, topN)
	for _, e := range top(repliers, topN) {
		rp := Replier{Entry: e}
		if targets := top(RepliedToBy(st, e.Name), 1); len(targets) > 0 {
			rp.Top = targets[0]
		}
		r.Repliers = append(r.Repliers, rp)
	}
	return r
}

// RepliedToBy counts, per author, the replies name sent them. Targets missing
// from st count as "Unknown".
func RepliedToBy(st *store.Store, name string) map[string]int {
	counts := map[string]int{}
	for _, m := range st.BySender(name) {
		for _, id := range m.ReplyTo {
			if target, ok := st.Get(id); ok {
				counts[target.Name()]++
			} else {
				counts[unknownTarget]++
			}
		}
	}
	return counts
}

// top returns the n largest counts, ties broken by name. n <= 0 keeps all.
func top(counts map[string]int, n int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for name, c := range counts {
		entries = append(entries, Entry{Name: name, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// SilentJoiners returns the latest invite-link join of every account that
// never authored a message in st, ordered by join time.
func SilentJoiners(st *store.Store, actions []store.Action) []store.Action {
	talked := map[string]bool{}
	for _, m := range st.Messages {
		if m.SenderID != nil {
			talked[*m.SenderID] = true
		}
	}

	latest := map[string]store.Action{}
	for _, a := range actions {
		if a.Kind != JoinByLink || talked[a.ActorID] {
			continue
		}
		if prev, ok := latest[a.ActorID]; !ok || a.Timestamp >= prev.Timestamp {
			latest[a.ActorID] = a
		}
	}

	out := make([]store.Action, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ActorID < out[j].ActorID
	})
	return out
}
