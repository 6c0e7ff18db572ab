package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns "<prefix>_<base36 millis><random>". The timestamp keeps ids
// roughly ordered; the random suffix comes from a v4 UUID, so two calls in
// the same millisecond still differ.
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "id"
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return prefix + "_" + ts + random
}

var nonSlug = regexp.MustCompile(`\s+`)

// Slugify lowercases s and replaces runs of whitespace with a dash.
func Slugify(s string) string {
	return nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}
