package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/render"
	"github.com/Zuo-Peng/chatmerge/internal/search"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	id      int64
	content string
	hitLine int
	err     error
}

// previewContext is how many messages around the selected one are rendered.
const previewContext = 25

// loadPreviewCmd returns a tea.Cmd that renders the thread preview async.
func loadPreviewCmd(db *index.DB, r search.Result, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, hitLine, err := render.RenderThread(db, r.ID, render.Options{
			Context: previewContext,
			Width:   width,
			Query:   query,
		})
		return previewRenderedMsg{
			id:      r.ID,
			content: content,
			hitLine: hitLine,
			err:     err,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
