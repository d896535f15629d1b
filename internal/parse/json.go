package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

// Entry of the top-level "messages" array in a result.json export.
type exportRecord struct {
	ID           *int64          `json:"id"`
	Type         string          `json:"type"`
	Action       json.RawMessage `json:"action"`
	Actor        *string         `json:"actor"`
	ActorID      *string         `json:"actor_id"`
	DateUnixtime json.RawMessage `json:"date_unixtime"`
	From         *string         `json:"from"`
	FromID       *string         `json:"from_id"`
	ReplyTo      *int64          `json:"reply_to_message_id"`
	MediaType    *string         `json:"media_type"`
	Text         json.RawMessage `json:"text"` // string or array of strings/entities
}

type textEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func ParseJSON(filePath string, log zerolog.Logger) (*Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	result, err := decodeJSON(data, filePath, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	result.Meta = SourceMeta{
		Path:  filePath,
		Kind:  "json",
		Files: []string{filePath},
		Mtime: info.ModTime(),
		Size:  info.Size(),
	}
	return result, nil
}

func decodeJSON(data []byte, file string, log zerolog.Logger) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedExport)
	}

	result := newResult()
	lines := &lineCounter{data: data, line: 1}
	found := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
		if key, _ := tok.(string); key != "messages" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
			}
			continue
		}

		if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
			return nil, fmt.Errorf("%w: messages is not an array", ErrMalformedExport)
		}
		found = true

		for i := 0; dec.More(); i++ {
			line := lines.at(dec.InputOffset())
			var rec exportRecord
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedExport, i, err)
			}

			if len(rec.Action) > 0 {
				result.Actions = append(result.Actions, recordAction(rec, log))
				continue
			}
			if rec.ID == nil {
				return nil, fmt.Errorf("%w: entry %d has no id", ErrMalformedExport, i)
			}

			msg := &store.Message{ID: *rec.ID}
			if ts, err := parseUnixtime(rec.DateUnixtime); err == nil {
				msg.Timestamp = &ts
			} else if len(rec.DateUnixtime) > 0 {
				log.Debug().Err(err).Int64("id", msg.ID).Msg("timestamp left unset")
			}
			msg.SenderName = rec.From
			msg.SenderID = rec.FromID
			if rec.ReplyTo != nil {
				msg.ReplyTo = []int64{*rec.ReplyTo}
			}
			if rec.MediaType != nil {
				msg.Media = *rec.MediaType
			}
			flattenText(rec.Text, msg)

			result.add(msg, Origin{File: file, Line: line})
		}

		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: no messages array", ErrMalformedExport)
	}
	return result, nil
}

func recordAction(rec exportRecord, log zerolog.Logger) store.Action {
	var a store.Action
	if err := json.Unmarshal(rec.Action, &a.Kind); err != nil {
		log.Debug().Err(err).Msg("action kind is not a string")
	}
	if rec.Actor != nil {
		a.Actor = *rec.Actor
	}
	if rec.ActorID != nil {
		a.ActorID = *rec.ActorID
	}
	if ts, err := parseUnixtime(rec.DateUnixtime); err == nil {
		a.Timestamp = ts
	}
	return a
}

// flattenText joins all text fragments with a single space, collecting
// mention and link entities on the way.
func flattenText(raw json.RawMessage, msg *store.Message) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		msg.Text = s
		return
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		var plain string
		if err := json.Unmarshal(p, &plain); err == nil {
			texts = append(texts, plain)
			continue
		}
		var ent textEntity
		if err := json.Unmarshal(p, &ent); err != nil {
			continue
		}
		texts = append(texts, ent.Text)
		if strings.Contains(ent.Type, "mention") {
			msg.Mentions = append(msg.Mentions, ent.Text)
		}
		if strings.Contains(ent.Type, "link") {
			msg.Links = append(msg.Links, ent.Text)
		}
	}
	msg.Text = strings.Join(texts, " ")
}

// date_unixtime is a quoted integer in current exports; accept bare numbers too.
func parseUnixtime(raw json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, fmt.Errorf("%w: empty", ErrUnparseableTimestamp)
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
	}
	return ts, nil
}

// lineCounter maps byte offsets to 1-based lines. Offsets must not decrease
// between calls, so each newline is counted once.
type lineCounter struct {
	data []byte
	off  int
	line int
}

// at returns the line of the first value byte at or after off.
func (c *lineCounter) at(off int64) int {
	i := int(off)
	for i < len(c.data) {
		switch c.data[i] {
		case ' ', '\t', '\r', '\n', ',':
			i++
			continue
		}
		break
	}
	i = min(i, len(c.data))
	if i > c.off {
		c.line += bytes.Count(c.data[c.off:i], []byte{'\n'})
		c.off = i
	}
	return c.line
}
