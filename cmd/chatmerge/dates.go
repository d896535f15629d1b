package main

import (
	"fmt"
	"strconv"
	"time"
)

// parseDate accepts a UTC calendar day (YYYY-MM-DD, meaning its midnight) or
// unix seconds. Empty means unset and returns 0.
func parseDate(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Unix(), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD or unix seconds", s)
	}
	return n, nil
}
