package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatmerge/internal/search"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

// nameWidth is the column reserved for the sender name on the first line.
const nameWidth = 14

// renderList renders the left panel: message list with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No messages")
	}

	var lines []string
	for i := m.listOffset; i < len(m.results); i++ {
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatResultLine(m.results[i], width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// shortDate renders unix seconds as "YY-MM-DD" in UTC, or blanks when unset.
func shortDate(ts int64) string {
	if ts == 0 {
		return "        "
	}
	return time.Unix(ts, 0).UTC().Format("06-01-02")
}

// fitWidth truncates s to w cells and pads it back out so columns line up.
func fitWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}

// formatResultLine formats a single message as two lines:
//
//	line 1: [>] YY-MM-DD  sender  #id
//	line 2:    snippet (dimmed)
func formatResultLine(r search.Result, width int, selected bool) []string {
	name := r.SenderName
	if name == "" {
		name = "(unknown)"
	}
	sender := lipgloss.NewStyle().
		Foreground(senderColor(name)).
		Render(fitWidth(name, nameWidth))

	line1 := fmt.Sprintf("%s %s %s", shortDate(r.Timestamp), sender,
		styleListID.Render(fmt.Sprintf("#%d", r.ID)))
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	snippet := strings.NewReplacer("\n", " ", "\t", " ", ">>>", "", "<<<", "").Replace(r.Snippet)
	snippetMax := max(width-4, 0) // indent
	if runewidth.StringWidth(snippet) > snippetMax {
		snippet = runewidth.Truncate(snippet, snippetMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(snippet)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
