package store

import "slices"

// DeletedAccount is the placeholder name exports use once an account is gone.
const DeletedAccount = "Deleted Account"

type Message struct {
	ID           int64    `json:"id" yaml:"id"`
	SenderName   *string  `json:"from_name" yaml:"from_name"`
	SenderID     *string  `json:"from_id,omitempty" yaml:"from_id,omitempty"`
	Timestamp    *int64   `json:"timestamp" yaml:"timestamp"`
	Text         string   `json:"text" yaml:"text"`
	Mentions     []string `json:"mentions" yaml:"mentions"`
	Links        []string `json:"links" yaml:"links"`
	MessageLinks []string `json:"message_links" yaml:"message_links"`
	Media        string   `json:"media" yaml:"media"`
	ReplyTo      []int64  `json:"reply_to" yaml:"reply_to"`
}

// Action is a non-message entry of a structured export, e.g. a join by invite link.
type Action struct {
	Kind      string `json:"action" yaml:"action"`
	Actor     string `json:"actor" yaml:"actor"`
	ActorID   string `json:"actor_id" yaml:"actor_id"`
	Timestamp int64  `json:"date_unixtime" yaml:"date_unixtime"`
}

// Name returns the display name or "" when unset.
func (m *Message) Name() string {
	if m.SenderName == nil {
		return ""
	}
	return *m.SenderName
}

// Sender returns the sender id or "" when unset.
func (m *Message) Sender() string {
	if m.SenderID == nil {
		return ""
	}
	return *m.SenderID
}

// Time returns the timestamp or 0 when unset.
func (m *Message) Time() int64 {
	if m.Timestamp == nil {
		return 0
	}
	return *m.Timestamp
}

func (m *Message) Clone() *Message {
	c := *m
	c.SenderName = clonePtr(m.SenderName)
	c.SenderID = clonePtr(m.SenderID)
	c.Timestamp = clonePtr(m.Timestamp)
	c.Mentions = slices.Clone(m.Mentions)
	c.Links = slices.Clone(m.Links)
	c.MessageLinks = slices.Clone(m.MessageLinks)
	c.ReplyTo = slices.Clone(m.ReplyTo)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy for the optional fields.
func Ptr[T any](v T) *T {
	return &v
}
