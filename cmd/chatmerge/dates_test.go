package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"1970-01-02", 86400},
		{"2021-03-04", 1614816000},
		{"1614816000", 1614816000},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"yesterday", "2021-13-01", "2021/03/04"} {
		_, err := parseDate(bad)
		assert.Error(t, err, bad)
	}
}
