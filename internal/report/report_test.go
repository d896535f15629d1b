package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatmerge/internal/store"
)

func m(id int64, name string, ts int64) *store.Message {
	msg := &store.Message{ID: id, Timestamp: store.Ptr(ts)}
	if name != "" {
		msg.SenderName = store.Ptr(name)
	}
	return msg
}

func chat() *store.Store {
	st := store.New()
	add := func(msg *store.Message) { st.Add(msg) }

	add(m(1, "Alice", 10))
	a2 := m(2, "Alice", 20)
	a2.Links = []string{"here"}
	add(a2)
	b3 := m(3, "Bob", 30)
	b3.ReplyTo = []int64{1}
	add(b3)
	b4 := m(4, "Bob", 86400+5)
	b4.ReplyTo = []int64{2}
	b4.Text = "see https://example.org"
	add(b4)
	c5 := m(5, "Carol", 86400+50)
	c5.ReplyTo = []int64{999}
	c5.Media = "photo"
	add(c5)
	b6 := m(6, "Bob", 3*86400+1)
	b6.ReplyTo = []int64{5}
	add(b6)
	add(m(7, "None", 3*86400+2))
	return st
}

func TestBuild(t *testing.T) {
	r := Build(chat(), 2)

	assert.Equal(t, 7, r.Total)
	assert.True(t, r.HasRange)
	assert.Equal(t, []Entry{{"Bob", 3}, {"Alice", 2}}, r.Talkers)
	assert.Equal(t, []Entry{{"Alice", 2}, {"Carol", 1}}, r.RepliedTo)
	assert.Equal(t, []Entry{{"Alice", 1}, {"Bob", 1}}, r.LinkPosters)
	assert.Equal(t, []Entry{{"Carol", 1}}, r.MediaPosters)

	require.Len(t, r.Repliers, 2)
	assert.Equal(t, Entry{"Bob", 3}, r.Repliers[0].Entry)
	assert.Equal(t, Entry{"Alice", 2}, r.Repliers[0].Top)
	assert.Equal(t, Entry{"Carol", 1}, r.Repliers[1].Entry)
	assert.Equal(t, Entry{"Unknown", 1}, r.Repliers[1].Top)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(store.New(), 5)
	assert.Zero(t, r.Total)
	assert.False(t, r.HasRange)
	assert.Empty(t, r.Talkers)

	var buf bytes.Buffer
	r.Write(&buf)
	assert.Contains(t, buf.String(), "No timestamps")
}

func TestTopKeepsAllWhenNonPositive(t *testing.T) {
	assert.Len(t, top(map[string]int{"a": 1, "b": 2, "c": 3}, 0), 3)
}

func TestPerDay(t *testing.T) {
	sum := PerDay(chat())

	require.Len(t, sum.Days, 4)
	assert.Equal(t, int64(0), sum.Days[0].Start)
	assert.Equal(t, 3, sum.Days[0].Messages)
	assert.Equal(t, map[string]int{"Alice": 2, "Bob": 1}, sum.Days[0].Talkers)
	assert.Equal(t, 2, sum.Days[1].Messages)
	assert.Zero(t, sum.Days[2].Messages)
	assert.Equal(t, 2, sum.Days[3].Messages)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "None"}, sum.UniqueTalkers)
	assert.InDelta(t, 1.5, sum.MeanTalkers, 1e-9)

	var buf bytes.Buffer
	sum.Write(&buf)
	assert.Contains(t, buf.String(), "Day 2 (1970-01-03), 0 messages from 0 talkers")
	assert.Contains(t, buf.String(), "Mean talkers per day: 1.5")
}

func TestPerDayNoTimestamps(t *testing.T) {
	st := store.New()
	st.Add(&store.Message{ID: 1, Text: "x"})
	sum := PerDay(st)
	assert.Empty(t, sum.Days)
}

func TestSilentJoiners(t *testing.T) {
	st := store.New()
	st.Add(&store.Message{ID: 1, SenderID: store.Ptr("user1"), Text: "hi"})

	actions := []store.Action{
		{Kind: JoinByLink, Actor: "talker", ActorID: "user1", Timestamp: 5},
		{Kind: JoinByLink, Actor: "lurker", ActorID: "user2", Timestamp: 10},
		{Kind: "invite_members", Actor: "x", ActorID: "user3", Timestamp: 11},
		{Kind: JoinByLink, Actor: "lurker again", ActorID: "user2", Timestamp: 30},
		{Kind: JoinByLink, Actor: "quiet", ActorID: "user4", Timestamp: 20},
	}

	got := SilentJoiners(st, actions)
	require.Len(t, got, 2)
	assert.Equal(t, "user4", got[0].ActorID)
	assert.Equal(t, "lurker again", got[1].Actor)

	var buf bytes.Buffer
	WriteSilentJoiners(&buf, got)
	assert.Contains(t, buf.String(), "Name: quiet, ID: user4, last joined: 1970-01-01 00:00:20")
}

func TestReportWrite(t *testing.T) {
	var buf bytes.Buffer
	Build(chat(), 3).Write(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total messages: 7")
	assert.Contains(t, out, "Top talkers:")
	assert.Contains(t, out, "3\tBob (most replies was 2 to Alice)")
	assert.Contains(t, out, "1\tCarol (most replies was 1 to Unknown)")
	assert.Contains(t, out, "Between 1970-01-01 00:00:10 and 1970-01-04 00:00:02")
}
