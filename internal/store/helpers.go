package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxSourceLen = 2048

// dbTimeLayouts covers CURRENT_TIMESTAMP defaults and values written by the
// driver from time.Time.
var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseDBTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", v)
}

func timestampBeforeDays(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// clipSource bounds a stored source label without splitting a rune.
func clipSource(v string) string {
	if len(v) <= maxSourceLen {
		return v
	}
	v = v[:maxSourceLen]
	for len(v) > 0 && !utf8.ValidString(v) {
		v = v[:len(v)-1]
	}
	return v
}
