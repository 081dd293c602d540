package service

import (
	"strings"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// Layouts a device may use for HandleRequest.Timestamp. Fractional seconds
// are accepted after the seconds field by every layout that has one.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700", // ISO-8601 basic offset, +0530
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	store.DateLayout,
}

// DateFromTimestamp returns the calendar date as the device wrote it. No
// time-zone conversion happens: "2024-01-15T23:30:00-05:00" is 2024-01-15.
func DateFromTimestamp(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(store.DateLayout), true
		}
	}
	return "", false
}
