package tenant

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	slugStrip  = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slug derives a store slug from its name and creation time so two stores
// with the same name never collide.
func Slug(name string, at time.Time) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespace.ReplaceAllString(s, "-")
	s = slugStrip.ReplaceAllString(s, "")
	return s + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}
