package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		tags     []types.Tag
		location string
	}{
		{
			name:     "cafes near one north",
			text:     "find cafes near one north",
			tags:     []types.Tag{types.TagCafe},
			location: "one-north",
		},
		{
			name:     "mixed case and clause boundary",
			text:     "Any good BARS around Clarke Quay, ideally open late",
			tags:     []types.Tag{types.TagBar},
			location: "clarke quay",
		},
		{
			name:     "in is the last resort",
			text:     "parks in Bishan; something quiet",
			tags:     []types.Tag{types.TagPark},
			location: "bishan",
		},
		{
			name:     "near wins over in",
			text:     "restaurants in town near Tanjong Pagar",
			tags:     []types.Tag{types.TagRestaurant},
			location: "tanjong pagar",
		},
		{
			name: "several tags keep canonical order",
			text: "a pub or a coffee shop or a garden",
			tags: []types.Tag{types.TagCafe, types.TagBar, types.TagPark},
		},
		{
			name: "no location, follow-up turn",
			text: "any vegetarian spots there",
			tags: []types.Tag{types.TagRestaurant},
		},
		{
			name: "coffee fallback catches prefixes",
			text: "is there a cafeteria nearby",
			tags: []types.Tag{types.TagCafe},
		},
		{
			name:     "onenorth spelling variant",
			text:     "drinks near onenorth.",
			tags:     []types.Tag{types.TagBar},
			location: "one-north",
		},
		{
			name: "nothing recognizable",
			text: "hello there",
			tags: []types.Tag{},
		},
		{
			name: "whole words only",
			text: "barbecue tonight",
			tags: []types.Tag{},
		},
		{
			name: "empty",
			text: "",
			tags: []types.Tag{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.text)
			assert.Equal(t, tt.tags, q.Tags)
			assert.Equal(t, tt.location, q.Location)
			assert.Equal(t, tt.location != "", q.HasLocation())
			assert.Equal(t, tt.text, q.Raw)
		})
	}
}

func TestParseAlwaysFindsCafe(t *testing.T) {
	for _, text := range []string{
		"cafe",
		"I want coffee",
		"Coffee near the office, please",
		"good cafe or bar in Bugis",
		"COFFEE and lunch",
	} {
		q := Parse(text)
		assert.Contains(t, q.Tags, types.TagCafe, text)
	}
}

func TestFirstTag(t *testing.T) {
	assert.Equal(t, types.Tag(""), Query{}.FirstTag())
	assert.Equal(t, types.TagBar, Parse("bars and parks").FirstTag())
}
