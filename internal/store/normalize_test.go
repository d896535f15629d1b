package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLastRecordedRealNameWins(t *testing.T) {
	// walked newest first: Deleted Account, Bob, Bobby
	s := storeOf(
		withSender(msg(3, DeletedAccount, 300, "c"), "U1"),
		withSender(msg(2, "Bob", 200, "b"), "U1"),
		withSender(msg(1, "Bobby", 100, "a"), "U1"),
		withSender(msg(4, "Zed", 400, "d"), "U2"),
	)

	s.Normalize()

	for _, id := range []int64{1, 2, 3} {
		assert.Equal(t, "Bobby", s.Messages[id].Name(), "id %d", id)
	}
	assert.Equal(t, "Zed", s.Messages[4].Name())
	assert.Equal(t, []string{"Bobby", DeletedAccount, "Bob"}, s.SenderHistory["U1"])
	assert.Equal(t, []string{"Zed"}, s.SenderHistory["U2"])
}

func TestNormalizeSkipsRepeatsAndPlaceholders(t *testing.T) {
	s := storeOf(
		withSender(msg(1, "Ann", 100, "a"), "U1"),
		withSender(msg(2, "Ann", 200, "b"), "U1"),
		withSender(msg(3, DeletedAccount, 300, "c"), "U2"),
		withSender(msg(4, "None", 400, "d"), "U2"),
		msg(5, "Loose", 500, "e"),
	)

	s.Normalize()

	assert.Equal(t, []string{"Ann"}, s.SenderHistory["U1"])
	// no informative name: records untouched
	assert.Equal(t, DeletedAccount, s.Messages[3].Name())
	assert.Equal(t, "None", s.Messages[4].Name())
	assert.Equal(t, []string{"None", DeletedAccount}, s.SenderHistory["U2"])
	assert.Equal(t, "Loose", s.Messages[5].Name())
}

func TestSanitizeBorrowsFromLowerID(t *testing.T) {
	s := storeOf(
		msg(99, "a", 0, "before any timestamp"),
		msg(100, "a", 5000, "x"),
		msg(101, "a", 0, "y"),
		msg(102, "a", 0, "z"),
		msg(103, "a", 7000, "w"),
		msg(104, "a", 0, "v"),
	)

	filled := s.Sanitize()

	assert.Equal(t, 3, filled)
	assert.Equal(t, int64(5000), s.Messages[101].Time())
	assert.Equal(t, int64(5000), s.Messages[102].Time())
	assert.Equal(t, int64(7000), s.Messages[104].Time())
	assert.Nil(t, s.Messages[99].Timestamp)
	assert.Equal(t, int64(5000), s.Earliest)
	assert.Equal(t, int64(7000), s.Latest)
}

func TestNormalizeKeepsEarlierHistory(t *testing.T) {
	acc := storeOf(
		withSender(msg(1, "Bob", 100, "a"), "U1"),
		withSender(msg(2, "Bobby", 200, "b"), "U1"),
	)
	acc.Normalize()
	assert.Equal(t, []string{"Bob", "Bobby"}, acc.SenderHistory["U1"])

	// every record now says Bob, the alias must survive another pass
	acc.Merge(storeOf(msg(3, "Other", 300, "c")))
	assert.Equal(t, "Bob", acc.Messages[2].Name())
	assert.Equal(t, []string{"Bob", "Bobby"}, acc.SenderHistory["U1"])
}
