package types

import (
	"github.com/paulmach/orb"
)

// Tag is an amenity category the assistant knows how to search for.
type Tag string

const (
	TagCafe       Tag = "cafe"
	TagRestaurant Tag = "restaurant"
	TagBar        Tag = "bar"
	TagPark       Tag = "park"
)

// AllTags lists every known tag in canonical order.
var AllTags = []Tag{TagCafe, TagRestaurant, TagBar, TagPark}

// FeatureKind is the `kind` property carried by every published feature.
type FeatureKind string

const (
	KindArea   FeatureKind = "area"
	KindTarget FeatureKind = "target"
	KindPOI    FeatureKind = "poi"
)

// GeoArea is a named polygonal boundary (orb.Polygon or orb.MultiPolygon).
type GeoArea struct {
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}

// TargetPoint is the point the conversation is currently centered on.
type TargetPoint struct {
	Name  string    `json:"name"`
	Point orb.Point `json:"point"`
}

// StickyContext is the location context carried over from an earlier turn.
// A nil *StickyContext means there is none.
type StickyContext struct {
	Target  *TargetPoint `json:"target,omitempty"`
	Area    *GeoArea     `json:"area,omitempty"`
	RadiusM *float64     `json:"radius_m,omitempty"`
}

// Center returns the sticky center, if any.
func (s *StickyContext) Center() (orb.Point, bool) {
	if s == nil || s.Target == nil {
		return orb.Point{}, false
	}
	return s.Target.Point, true
}

type ContextSource string

const (
	SourceExplicit ContextSource = "explicit"
	SourceSticky   ContextSource = "sticky"
	SourceNone     ContextSource = "none"
)

// ResolvedContext is the per-turn decision about where the search happens.
// It is created once per turn and never mutated afterwards.
type ResolvedContext struct {
	Center  *orb.Point    `json:"center,omitempty"`
	Name    string        `json:"name,omitempty"`
	Area    *GeoArea      `json:"-"`
	RadiusM float64       `json:"radius_m,omitempty"`
	Source  ContextSource `json:"source"`
}

// GeocodeHit is the single best match returned by a geocoder.
type GeocodeHit struct {
	Point       orb.Point
	DisplayName string
	BBox        *orb.Bound
	// Area is set only when the provider returned a polygonal boundary.
	Area orb.Geometry
}

// NearbyQuery describes a ranked nearby search around a center point.
type NearbyQuery struct {
	Center  orb.Point
	RadiusM float64
	Tags    []Tag
	Limit   int
}

// POI is a ranked point of interest.
type POI struct {
	Name       string
	Category   string
	Point      orb.Point
	DistM      float64
	Properties map[string]interface{}
}

// ResultSet is the structured artifact published for a turn.
type ResultSet struct {
	Area    *GeoArea
	Target  *TargetPoint
	RadiusM float64
	POIs    []POI
}
