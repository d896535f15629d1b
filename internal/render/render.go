package render

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

const (
	colorReset   = "\033[0m"
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

// sender names cycle through these
var senderColors = []string{
	"\033[1;34m", // bold blue
	"\033[1;32m", // bold green
	"\033[1;35m", // bold magenta
	"\033[1;36m", // bold cyan
	"\033[1;33m", // bold yellow
}

const timeLayout = "2006-01-02 15:04:05"

type Options struct {
	Context int    // messages before/after the hit to show
	Width   int    // wrap width (0 = no wrap)
	Query   string // search query for keyword highlighting
}

// FormatTime renders unix seconds in UTC, or "-" for an unset timestamp.
func FormatTime(ts *int64) string {
	if ts == nil {
		return "-"
	}
	return time.Unix(*ts, 0).UTC().Format(timeLayout)
}

// DisplayName is the sender name, or a placeholder when the export had none.
func DisplayName(m *store.Message) string {
	if m.SenderName == nil || *m.SenderName == "" {
		return "(unknown)"
	}
	return *m.SenderName
}

func senderColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return senderColors[h.Sum32()%uint32(len(senderColors))]
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	for _, term := range strings.Fields(query) {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			if pos+len(term) > len(text) {
				break
			}
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// messageTags lists what a message carries besides text.
func messageTags(m *store.Message) string {
	var tags []string
	for _, r := range m.ReplyTo {
		tags = append(tags, fmt.Sprintf("reply to #%d", r))
	}
	if m.Media != "" {
		tags = append(tags, "["+m.Media+"]")
	}
	for _, l := range m.MessageLinks {
		tags = append(tags, "-> #"+l)
	}
	return strings.Join(tags, " ")
}

// RenderThread renders the cached messages around id and returns the
// content, the 0-based line number of the hit message header (-1 if the id
// is not cached), and any error.
func RenderThread(db *index.DB, id int64, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}

	hit, err := db.GetMessage(id)
	if err != nil {
		return "", -1, fmt.Errorf("get message: %w", err)
	}
	if hit == nil {
		return "", -1, fmt.Errorf("message not found: %d", id)
	}

	rows, hitIdx, err := db.MessagesWindow(id, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get messages: %w", err)
	}
	before, after, err := db.CountOutside(rows[0].ID, rows[len(rows)-1].ID)
	if err != nil {
		return "", -1, fmt.Errorf("count messages: %w", err)
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + "--------------------------------------------------" + colorReset

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	origin := hit.Origin.File
	if hit.Origin.Line > 0 {
		origin = fmt.Sprintf("%s:%d", origin, hit.Origin.Line)
	}
	writeLine(fmt.Sprintf("%s--- #%d %s ---%s", colorDim, id, origin, colorReset))

	if before > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", colorDim, before, colorReset))
	}

	for i, row := range rows {
		isHit := i == hitIdx
		if i > 0 {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		name := DisplayName(row.Message)
		ts := FormatTime(row.Timestamp)
		tags := messageTags(row.Message)
		if isHit {
			writeLine(fmt.Sprintf("%s>> %s #%d > %s <<%s %s", colorHit, name, row.ID, ts, colorReset, tags))
		} else {
			writeLine(fmt.Sprintf("%s%s%s %s#%d %s%s %s", senderColor(name), name, colorReset, colorDim, row.ID, ts, colorReset, tags))
		}

		text := highlightKeywords(row.Text, opts.Query)
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
		writeLine("") // blank line after message
	}

	if after > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", colorDim, after, colorReset))
	}

	return b.String(), hitLine, nil
}
