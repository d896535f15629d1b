package store

import (
	"math"
	"slices"
)

// Store is the canonical message collection keyed by message id, plus the
// indices derived from it.
type Store struct {
	Messages      map[int64]*Message
	Earliest      int64
	Latest        int64
	SenderHistory map[string][]string

	// built on first BySender call, dropped on every mutation below
	bySender map[string][]*Message
}

func New() *Store {
	return &Store{
		Messages:      make(map[int64]*Message),
		Earliest:      math.MaxInt64,
		Latest:        math.MinInt64,
		SenderHistory: make(map[string][]string),
	}
}

func (s *Store) Len() int {
	return len(s.Messages)
}

func (s *Store) Get(id int64) (*Message, bool) {
	m, ok := s.Messages[id]
	return m, ok
}

// Add stores m under its id, replacing any previous record, and widens the bounds.
func (s *Store) Add(m *Message) {
	s.Messages[m.ID] = m
	s.CheckTimestamp(m)
	s.bySender = nil
}

// CheckTimestamp widens Earliest/Latest to cover m. Messages without a
// timestamp leave the bounds alone.
func (s *Store) CheckTimestamp(m *Message) {
	if m == nil || m.Timestamp == nil {
		return
	}
	ts := *m.Timestamp
	if ts < s.Earliest {
		s.Earliest = ts
	}
	if ts > s.Latest {
		s.Latest = ts
	}
}

// HasBounds reports whether at least one message carried a timestamp.
func (s *Store) HasBounds() bool {
	return s.Earliest <= s.Latest
}

// RecomputeBounds resets the bounds and rescans every message.
func (s *Store) RecomputeBounds() {
	s.Earliest = math.MaxInt64
	s.Latest = math.MinInt64
	for _, m := range s.Messages {
		s.CheckTimestamp(m)
	}
}

// IDs returns all message ids in ascending order.
func (s *Store) IDs() []int64 {
	ids := make([]int64, 0, len(s.Messages))
	for id := range s.Messages {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Sorted returns the messages in ascending id order.
func (s *Store) Sorted() []*Message {
	ids := s.IDs()
	out := make([]*Message, len(ids))
	for i, id := range ids {
		out[i] = s.Messages[id]
	}
	return out
}

// BySender returns every message whose display name is name, in ascending id
// order. The index is built on the first call.
func (s *Store) BySender(name string) []*Message {
	if s.bySender == nil {
		s.bySender = make(map[string][]*Message)
		for _, m := range s.Sorted() {
			n := m.Name()
			s.bySender[n] = append(s.bySender[n], m)
		}
	}
	return s.bySender[name]
}

// Filter returns a new store holding the messages keep accepts. Records are
// shared with s; sender history is copied.
func (s *Store) Filter(keep func(*Message) bool) *Store {
	out := New()
	for _, m := range s.Messages {
		if keep(m) {
			out.Add(m)
		}
	}
	for id, names := range s.SenderHistory {
		out.SenderHistory[id] = slices.Clone(names)
	}
	return out
}

// InRange builds a Filter predicate for [notBefore, notAfter]; zero disables a side.
// Messages without a timestamp never match an active bound.
func InRange(notBefore, notAfter int64) func(*Message) bool {
	return func(m *Message) bool {
		if notBefore == 0 && notAfter == 0 {
			return true
		}
		if m.Timestamp == nil {
			return false
		}
		if notBefore != 0 && *m.Timestamp < notBefore {
			return false
		}
		if notAfter != 0 && *m.Timestamp > notAfter {
			return false
		}
		return true
	}
}
