// Package query extracts amenity tags and a location phrase from a chat turn.
package query

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

// Query is the parsed intent of a single user turn.
type Query struct {
	Raw      string      `json:"raw"`
	Tags     []types.Tag `json:"tags"`
	Location string      `json:"location,omitempty"`
}

// HasLocation reports whether the turn named a place.
func (q Query) HasLocation() bool { return q.Location != "" }

// FirstTag returns the first tag in canonical order, or "".
func (q Query) FirstTag() types.Tag {
	if len(q.Tags) == 0 {
		return ""
	}
	return q.Tags[0]
}

var tagSynonyms = map[types.Tag][]string{
	types.TagCafe:       {"cafe", "cafes", "coffee", "coffee shop", "espresso"},
	types.TagRestaurant: {"restaurant", "restaurants", "lunch", "dinner", "food", "eatery", "vegetarian", "vegan"},
	types.TagBar:        {"bar", "bars", "pub", "drinks"},
	types.TagPark:       {"park", "parks", "green space", "garden"},
}

type tagMatcher struct {
	tag      types.Tag
	patterns []*regexp.Regexp
}

var (
	tagMatchers = buildTagMatchers()

	// heuristics applied only when no synonym matched
	foodFallback   = regexp.MustCompile(`\blunch\b|\bfood\b`)
	coffeeFallback = regexp.MustCompile(`\bcafe|coffee`)

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bnear\b\s+([^,.;]+)`),
		regexp.MustCompile(`\baround\b\s+([^,.;]+)`),
		regexp.MustCompile(`\bin\b\s+([^,.;]+)`),
	}

	oneNorth = regexp.MustCompile(`\bone\s*[-\s]?north\b`)
)

func buildTagMatchers() []tagMatcher {
	matchers := make([]tagMatcher, 0, len(types.AllTags))
	for _, tag := range types.AllTags {
		m := tagMatcher{tag: tag}
		for _, word := range tagSynonyms[tag] {
			m.patterns = append(m.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(word)+`\b`))
		}
		matchers = append(matchers, m)
	}
	return matchers
}

// Parse never fails: a turn without recognizable intent yields no tags and no
// location.
func Parse(text string) Query {
	lower := strings.ToLower(text)
	return Query{
		Raw:      text,
		Tags:     parseTags(lower),
		Location: parseLocation(lower),
	}
}

func parseTags(lower string) []types.Tag {
	tags := make([]types.Tag, 0, 2)
	for _, m := range tagMatchers {
		for _, p := range m.patterns {
			if p.MatchString(lower) {
				tags = append(tags, m.tag)
				break
			}
		}
	}
	if len(tags) > 0 {
		return tags
	}

	if foodFallback.MatchString(lower) {
		tags = append(tags, types.TagRestaurant)
	}
	if coffeeFallback.MatchString(lower) {
		tags = append(tags, types.TagCafe)
	}
	return normalizeOrder(tags)
}

func normalizeOrder(tags []types.Tag) []types.Tag {
	seen := make(map[types.Tag]bool, len(tags))
	for _, t := range tags {
		seen[t] = true
	}
	out := make([]types.Tag, 0, len(seen))
	for _, t := range types.AllTags {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

func parseLocation(lower string) string {
	for _, p := range locationPatterns {
		m := p.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		loc := strings.TrimSpace(m[1])
		if loc == "" {
			continue
		}
		return oneNorth.ReplaceAllString(loc, "one-north")
	}
	return ""
}
