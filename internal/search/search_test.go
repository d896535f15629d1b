package search

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatmerge/internal/index"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

func seededDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.OpenDB(filepath.Join(t.TempDir(), "chatmerge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New()
	st.Add(&store.Message{ID: 1, SenderName: store.Ptr("Alice"), SenderID: store.Ptr("user1"), Timestamp: store.Ptr(int64(100)), Text: "the brewery on main street"})
	st.Add(&store.Message{ID: 2, SenderName: store.Ptr("Bob"), SenderID: store.Ptr("user2"), Timestamp: store.Ptr(int64(200)), Text: "which brewery?"})
	st.Add(&store.Message{ID: 3, SenderName: store.Ptr("Alice"), SenderID: store.Ptr("user1"), Timestamp: store.Ptr(int64(300)), Text: "去酒吧喝一杯"})
	st.Add(&store.Message{ID: 4, SenderName: store.Ptr("Carol"), Timestamp: store.Ptr(int64(400)), Text: "ping b1n/< about it"})
	require.NoError(t, db.Save(&index.Snapshot{Store: st}))
	return db
}

func ids(rs []Result) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestSearchFTS(t *testing.T) {
	db := seededDB(t)

	rs, err := Search(db, Options{Query: "brewery"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids(rs))
	for _, r := range rs {
		assert.Contains(t, r.Snippet, ">>>brewery<<<")
	}

	rs, err = Search(db, Options{Query: "brewery", Sender: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(rs))

	rs, err = Search(db, Options{Query: "brewery", Sender: "user1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rs))

	rs, err = Search(db, Options{Query: "brewery", Since: 150})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(rs))
}

func TestSearchPunctuationIsLiteral(t *testing.T) {
	rs, err := Search(seededDB(t), Options{Query: "b1n/<"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(rs))
	assert.Equal(t, "Carol", rs[0].SenderName)
	assert.Empty(t, rs[0].SenderID)
}

func TestSearchCJKUsesLike(t *testing.T) {
	rs, err := Search(seededDB(t), Options{Query: "酒吧"})
	require.NoError(t, err)
	require.Equal(t, []int64{3}, ids(rs))
	assert.Contains(t, rs[0].Snippet, ">>>酒吧<<<")
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := Search(seededDB(t), Options{Query: "  "})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	db := seededDB(t)

	rs, err := List(db, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(rs))

	rs, err = List(db, Options{Sender: "Alice", Until: 200})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rs))

	rs, err = List(db, Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestMakeSnippet(t *testing.T) {
	assert.Equal(t, "...ry on >>>main<<< stree...", makeSnippet("the brewery on main street", "MAIN", 6))
	assert.Equal(t, "short", makeSnippet("short", "absent", 10))
	assert.Equal(t, "abcd...", makeSnippet("abcdefgh", "zz", 2))
	assert.Equal(t, "abcd...", makeSnippet("abcdefgh", "", 2))
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"foo" "b1n/<"`, ftsQuery("foo  b1n/<"))
	assert.Equal(t, `"say" """hi"""`, ftsQuery(`say "hi"`))
}

func TestGrep(t *testing.T) {
	st := store.New()
	st.Add(&store.Message{ID: 1, Text: "Brewery tour"})
	st.Add(&store.Message{ID: 2, Text: "nothing"})

	got, err := Grep(st, `(?i)brew`)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs())

	_, err = Grep(st, `(`)
	assert.Error(t, err)
}
