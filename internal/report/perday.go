package report

import (
	"sort"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

const secondsPerDay = 86400

type Day struct {
	Start    int64 // UTC midnight
	Messages int
	Talkers  map[string]int
}

type PerDaySummary struct {
	Days          []Day
	UniqueTalkers []string
	MeanTalkers   float64
}

// PerDay buckets timestamped messages by UTC calendar day, from the first
// active day to the last one. Quiet days in between are kept with zero counts.
func PerDay(st *store.Store) PerDaySummary {
	var sum PerDaySummary
	if !st.HasBounds() {
		return sum
	}

	first := st.Earliest - mod(st.Earliest, secondsPerDay)
	last := st.Latest - mod(st.Latest, secondsPerDay)
	for d := first; d <= last; d += secondsPerDay {
		sum.Days = append(sum.Days, Day{Start: d, Talkers: map[string]int{}})
	}

	unique := map[string]bool{}
	for _, m := range st.Messages {
		if m.Timestamp == nil {
			continue
		}
		day := &sum.Days[(*m.Timestamp-first)/secondsPerDay]
		day.Messages++
		day.Talkers[m.Name()]++
		unique[m.Name()] = true
	}

	talkerDays := 0
	for _, d := range sum.Days {
		talkerDays += len(d.Talkers)
	}
	sum.MeanTalkers = float64(talkerDays) / float64(len(sum.Days))

	for name := range unique {
		sum.UniqueTalkers = append(sum.UniqueTalkers, name)
	}
	sort.Strings(sum.UniqueTalkers)
	return sum
}

// mod is the floored remainder, so days before 1970 still start at midnight.
func mod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
