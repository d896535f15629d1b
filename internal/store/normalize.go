package store

import "slices"

func informative(name string) bool {
	return !IsNullString(name) && name != DeletedAccount
}

// Normalize gives every message of a sender id the same display name.
//
// Ids are walked newest first and each sender's names are recorded in walk
// order, skipping immediate repeats. The most recently recorded informative
// name wins and is written to all of that sender's messages; it also moves to
// the front of SenderHistory, ahead of names earlier passes recorded. Senders
// that never had an informative name keep whatever their messages say.
func (s *Store) Normalize() {
	history := make(map[string][]string)
	ids := s.IDs()
	for i := len(ids) - 1; i >= 0; i-- {
		m := s.Messages[ids[i]]
		if nullStrPtr(m.SenderID) || m.SenderName == nil {
			continue
		}
		sid, name := *m.SenderID, *m.SenderName
		h := history[sid]
		if len(h) == 0 || h[len(h)-1] != name {
			history[sid] = append(h, name)
		}
	}

	chosen := make(map[string]string, len(history))
	for sid, h := range history {
		for j := len(h) - 1; j >= 0; j-- {
			if informative(h[j]) {
				chosen[sid] = h[j]
				break
			}
		}
		if name, ok := chosen[sid]; ok {
			rest := slices.DeleteFunc(slices.Clone(h), func(n string) bool { return n == name })
			history[sid] = append([]string{name}, rest...)
		}
	}

	for _, m := range s.Messages {
		if nullStrPtr(m.SenderID) {
			continue
		}
		if name, ok := chosen[*m.SenderID]; ok {
			m.SenderName = Ptr(name)
		}
	}

	// names seen by earlier passes stay known even once records were rewritten
	for sid, old := range s.SenderHistory {
		for _, name := range old {
			if !slices.Contains(history[sid], name) {
				history[sid] = append(history[sid], name)
			}
		}
	}

	s.SenderHistory = history
	s.bySender = nil
}

// Sanitize fills unset timestamps from the nearest lower id that has one.
// Messages below the first timestamped id stay unset.
func (s *Store) Sanitize() int {
	filled := 0
	var last *int64
	for _, id := range s.IDs() {
		m := s.Messages[id]
		if m.Timestamp != nil {
			last = m.Timestamp
			continue
		}
		if last != nil {
			m.Timestamp = Ptr(*last)
			filled++
		}
	}
	s.RecomputeBounds()
	s.bySender = nil
	return filled
}
