package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
 "name": "pub",
 "type": "public_supergroup",
 "id": 1,
 "messages": [
  {
   "id": 363179,
   "type": "service",
   "date_unixtime": "1660682100",
   "actor": "lurker",
   "actor_id": "user42",
   "action": "join_group_by_link"
  },
  {
   "id": 363180,
   "type": "message",
   "date": "2022-08-16T13:36:42",
   "date_unixtime": "1660682202",
   "from": "c0ldbru",
   "from_id": "user1927162607",
   "reply_to_message_id": 363176,
   "text": [
    "really we just want to get",
    {"type": "mention", "text": "@pubkraal"},
    "on there, and get",
    {"type": "mention_name", "text": "b1n/<", "user_id": 1898901504},
    "onto our car",
    {"type": "text_link", "text": "here", "href": "https://example.org"}
   ]
  },
  {
   "id": 363181,
   "type": "message",
   "from": null,
   "media_type": "sticker",
   "text": "plain string"
  },
  {
   "id": 363182,
   "type": "message",
   "date_unixtime": 1660682300,
   "from": "Deleted Account",
   "from_id": "user7",
   "text": ""
  }
 ]
}`

func nopLog() zerolog.Logger { return zerolog.Nop() }

func TestDecodeJSON(t *testing.T) {
	res, err := decodeJSON([]byte(sampleJSON), "", nopLog())
	require.NoError(t, err)

	st := res.Store
	assert.Equal(t, []int64{363180, 363181, 363182}, st.IDs())

	m := st.Messages[363180]
	assert.Equal(t, "c0ldbru", m.Name())
	assert.Equal(t, "user1927162607", m.Sender())
	assert.Equal(t, int64(1660682202), m.Time())
	assert.Equal(t, []int64{363176}, m.ReplyTo)
	assert.Equal(t, "really we just want to get @pubkraal on there, and get b1n/< onto our car here", m.Text)
	assert.Equal(t, []string{"@pubkraal", "b1n/<"}, m.Mentions)
	assert.Equal(t, []string{"here"}, m.Links)

	m = st.Messages[363181]
	assert.Nil(t, m.SenderName)
	assert.Nil(t, m.Timestamp)
	assert.Equal(t, "sticker", m.Media)
	assert.Equal(t, "plain string", m.Text)
	assert.Empty(t, m.ReplyTo)

	assert.Equal(t, int64(1660682300), st.Messages[363182].Time())
	assert.Equal(t, int64(1660682202), st.Earliest)
	assert.Equal(t, int64(1660682300), st.Latest)

	require.Len(t, res.Actions, 1)
	assert.Equal(t, "join_group_by_link", res.Actions[0].Kind)
	assert.Equal(t, "lurker", res.Actions[0].Actor)
	assert.Equal(t, "user42", res.Actions[0].ActorID)
	assert.Equal(t, int64(1660682100), res.Actions[0].Timestamp)

	assert.Equal(t, 14, res.Origins[363180].Line)
}

func TestDecodeJSONFragmentsJoinedWithSpace(t *testing.T) {
	data := `{"messages":[{"id":1,"text":["a ",{"type":"bold","text":"b"}," c"]}]}`
	res, err := decodeJSON([]byte(data), "", nopLog())
	require.NoError(t, err)
	assert.Equal(t, "a  b  c", res.Store.Messages[1].Text)
}

func TestDecodeJSONMalformed(t *testing.T) {
	cases := map[string]string{
		"no messages":   `{"name":"x"}`,
		"not an object": `[1,2,3]`,
		"not an array":  `{"messages": {}}`,
		"missing id":    `{"messages":[{"type":"message","text":"hi"}]}`,
		"broken entry":  `{"messages":[{"id": "seven"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeJSON([]byte(data), "", nopLog())
			assert.ErrorIs(t, err, ErrMalformedExport)
		})
	}
}

func TestDecodeJSONBadTimestampKeepsRecord(t *testing.T) {
	data := `{"messages":[{"id":5,"date_unixtime":"soon","text":"x"}]}`
	res, err := decodeJSON([]byte(data), "", nopLog())
	require.NoError(t, err)
	require.Contains(t, res.Store.Messages, int64(5))
	assert.Nil(t, res.Store.Messages[5].Timestamp)
	assert.False(t, res.Store.HasBounds())

	_, err = parseUnixtime([]byte(`"soon"`))
	assert.ErrorIs(t, err, ErrUnparseableTimestamp)
}

func TestParseJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	res, err := ParseJSON(path, nopLog())
	require.NoError(t, err)
	assert.Equal(t, "json", res.Meta.Kind)
	assert.Equal(t, path, res.Meta.Path)
	assert.Equal(t, path, res.Origins[363181].File)
	assert.Equal(t, 3, res.Store.Len())
}

// generatedExport writes n messages one per line, so message i sits on line i+1.
func generatedExport(n int) []byte {
	var b strings.Builder
	b.WriteString(`{"name":"big","messages":[` + "\n")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, `{"id":%d,"type":"message","date_unixtime":"%d","from":"user%d","from_id":"user%d","text":["hi ",{"type":"mention","text":"@u%d"}]}`,
			i, 1600000000+i, i%50, i%50, i%7)
	}
	b.WriteString("\n]}\n")
	return []byte(b.String())
}

func TestDecodeJSONLargeExportLines(t *testing.T) {
	const n = 50000
	res, err := decodeJSON(generatedExport(n), "big.json", nopLog())
	require.NoError(t, err)
	require.Equal(t, n, res.Store.Len())

	for _, id := range []int64{1, 2, 999, 25000, n - 1, n} {
		assert.Equal(t, int(id)+1, res.Origins[id].Line, "id %d", id)
		assert.Equal(t, "big.json", res.Origins[id].File)
	}
	assert.Equal(t, int64(1600000001), res.Store.Earliest)
	assert.Equal(t, int64(1600000000+n), res.Store.Latest)
}

func TestLineCounter(t *testing.T) {
	data := []byte("a\nb\n  ,\n c")
	c := &lineCounter{data: data, line: 1}
	assert.Equal(t, 1, c.at(0))
	assert.Equal(t, 2, c.at(2))
	// whitespace and commas are skipped up to the value
	assert.Equal(t, 4, c.at(4))
	assert.Equal(t, 4, c.at(int64(len(data))))
}

func BenchmarkDecodeJSON(b *testing.B) {
	data := generatedExport(20000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decodeJSON(data, "", nopLog()); err != nil {
			b.Fatal(err)
		}
	}
}
