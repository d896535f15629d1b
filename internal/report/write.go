package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Zuo-Peng/chatmerge/internal/render"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

func header(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(title))
}

func writeEntries(w io.Writer, entries []Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", humanize.Comma(int64(e.Count)), e.Name)
	}
}

func timeRange(w io.Writer, ok bool, earliest, latest int64) {
	if !ok {
		fmt.Fprintln(w, "No timestamps")
		return
	}
	span := time.Duration(latest-earliest) * time.Second
	fmt.Fprintf(w, "Between %s and %s (%s)\n",
		render.FormatTime(&earliest), render.FormatTime(&latest),
		strings.TrimSuffix(humanize.RelTime(time.Unix(earliest, 0), time.Unix(earliest, 0).Add(span), "", ""), " "))
}

// Write prints r as the plain-text report.
func (r Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Total messages: %s\n", humanize.Comma(int64(r.Total)))
	timeRange(w, r.HasRange, r.Earliest, r.Latest)

	header(w, "Top talkers:")
	writeEntries(w, r.Talkers)

	header(w, "Top repliers to messages:")
	for _, rp := range r.Repliers {
		fmt.Fprintf(w, "%s\t%s (most replies was %s to %s)\n",
			humanize.Comma(int64(rp.Count)), rp.Name, humanize.Comma(int64(rp.Top.Count)), rp.Top.Name)
	}

	header(w, "Top people replied to:")
	writeEntries(w, r.RepliedTo)

	header(w, "Top link posters:")
	writeEntries(w, r.LinkPosters)

	header(w, "Top media posters:")
	writeEntries(w, r.MediaPosters)
}

// Write prints one line per day followed by the totals.
func (s PerDaySummary) Write(w io.Writer) {
	if len(s.Days) == 0 {
		fmt.Fprintln(w, "No timestamped messages")
		return
	}
	total := 0
	for i, d := range s.Days {
		total += d.Messages
		fmt.Fprintf(w, "Day %d (%s), %s messages from %d talkers\n",
			i, time.Unix(d.Start, 0).UTC().Format("2006-01-02"), humanize.Comma(int64(d.Messages)), len(d.Talkers))
	}
	first, last := s.Days[0].Start, s.Days[len(s.Days)-1].Start+secondsPerDay-1
	fmt.Fprintf(w, "Total messages: %s\n", humanize.Comma(int64(total)))
	fmt.Fprintf(w, "Between %s and %s\n", render.FormatTime(&first), render.FormatTime(&last))
	fmt.Fprintf(w, "Total unique talkers: %d\n", len(s.UniqueTalkers))
	fmt.Fprintf(w, "Mean talkers per day: %.1f\n", s.MeanTalkers)
	fmt.Fprintf(w, "Unique talkers: %s\n", strings.Join(s.UniqueTalkers, ", "))
}

// WriteSilentJoiners prints the accounts that joined by link and never wrote.
func WriteSilentJoiners(w io.Writer, joiners []store.Action) {
	header(w, "Joined by link, never talked:")
	for _, a := range joiners {
		ts := a.Timestamp
		fmt.Fprintf(w, "Name: %s, ID: %s, last joined: %s\n", a.Actor, a.ActorID, render.FormatTime(&ts))
	}
}
