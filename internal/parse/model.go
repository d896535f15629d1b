package parse

import (
	"time"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

type SourceMeta struct {
	Path  string
	Kind  string // "json" or "html"
	Files []string
	Mtime time.Time
	Size  int64
}

// Origin locates a message in the export it was read from.
type Origin struct {
	File string
	Line int // 1-based line where the message starts
}

type Result struct {
	Meta    SourceMeta
	Store   *store.Store
	Actions []store.Action
	Origins map[int64]Origin
}

func newResult() *Result {
	return &Result{
		Store:   store.New(),
		Origins: make(map[int64]Origin),
	}
}

func (r *Result) add(m *store.Message, o Origin) {
	r.Store.Add(m)
	r.Origins[m.ID] = o
}
