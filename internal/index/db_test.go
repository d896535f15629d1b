package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatmerge/internal/scan"
	"github.com/Zuo-Peng/chatmerge/internal/store"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "cache", "chatmerge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := writeFixture(t)
	snap, _, err := Build(context.Background(), f.paths(), testOptions())
	require.NoError(t, err)

	db := testDB(t)
	require.NoError(t, db.Save(snap))

	got, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, snap.Store.Messages, got.Store.Messages)
	assert.Equal(t, snap.Store.SenderHistory, got.Store.SenderHistory)
	assert.Equal(t, snap.Store.Earliest, got.Store.Earliest)
	assert.Equal(t, snap.Store.Latest, got.Store.Latest)
	assert.Equal(t, snap.Actions, got.Actions)
	assert.Equal(t, snap.Origins, got.Origins)
	assert.Equal(t, snap.BuildID, got.BuildID)
	assert.Equal(t, snap.BuiltAt.Unix(), got.BuiltAt.Unix())
	require.Len(t, got.Sources, 3)

	n, err := db.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = db.SenderCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = db.ActionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveReplacesPreviousBuild(t *testing.T) {
	db := testDB(t)

	first := &Snapshot{Store: store.New()}
	first.Store.Add(&store.Message{ID: 1, Text: "one", Timestamp: store.Ptr(int64(10))})
	first.Store.Add(&store.Message{ID: 2, Text: "two"})
	require.NoError(t, db.Save(first))

	second := &Snapshot{Store: store.New()}
	second.Store.Add(&store.Message{ID: 3, Text: "three"})
	require.NoError(t, db.Save(second))

	got, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got.Store.IDs())
	assert.False(t, got.Store.HasBounds())
}

func TestLoadEmptyCache(t *testing.T) {
	got, err := testDB(t).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, got.Store.Len())
	assert.False(t, got.Store.HasBounds())
	assert.Empty(t, got.Sources)
}

func TestGetMessageAndWindow(t *testing.T) {
	f := writeFixture(t)
	snap, _, err := Build(context.Background(), f.paths(), testOptions())
	require.NoError(t, err)
	db := testDB(t)
	require.NoError(t, db.Save(snap))

	row, err := db.GetMessage(3)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "yo", row.Text)
	assert.Equal(t, f.newer, row.Origin.File)

	row, err = db.GetMessage(99)
	require.NoError(t, err)
	assert.Nil(t, row)

	win, hit, err := db.MessagesWindow(3, 1)
	require.NoError(t, err)
	require.Len(t, win, 3)
	assert.Equal(t, 1, hit)
	assert.Equal(t, int64(2), win[0].ID)
	assert.Equal(t, int64(4), win[2].ID)

	win, hit, err = db.MessagesWindow(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, hit)
	assert.Len(t, win, 3)
}

func TestIndexAllSkipsFreshCache(t *testing.T) {
	f := writeFixture(t)
	db := testDB(t)

	stats, err := IndexAll(context.Background(), db, f.paths(), testOptions())
	require.NoError(t, err)
	assert.False(t, stats.Fresh)
	assert.Equal(t, 5, stats.Messages)

	stats, err = IndexAll(context.Background(), db, f.paths(), testOptions())
	require.NoError(t, err)
	assert.True(t, stats.Fresh)
	assert.Contains(t, stats.String(), "up to date")

	opts := testOptions()
	opts.Force = true
	stats, err = IndexAll(context.Background(), db, f.paths(), opts)
	require.NoError(t, err)
	assert.False(t, stats.Fresh)

	// a different source set is never fresh
	sources, err := scan.DetectAll(f.paths()[:2])
	require.NoError(t, err)
	fresh, err := db.Fresh(sources)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestSchemaVersionRecorded(t *testing.T) {
	db := testDB(t)
	v, err := db.Meta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
}

func TestCountOutside(t *testing.T) {
	db := testDB(t)
	st := store.New()
	for id := int64(1); id <= 6; id++ {
		st.Add(&store.Message{ID: id})
	}
	require.NoError(t, db.Save(&Snapshot{Store: st}))

	before, after, err := db.CountOutside(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, before)
	assert.Equal(t, 2, after)
}
