// Package mapchat turns a chat transcript into a resolved search location, a
// ranked set of nearby places and the directive handed to the language model.
package mapchat

import (
	"context"
	"errors"
	"iter"

	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var (
	// ErrTurnFailed marks an upstream failure that aborted the turn. The turn
	// publishes no structured result.
	ErrTurnFailed = errors.New("mapchat: turn failed")

	ErrModelUnavailable = errors.New("mapchat: language model is not configured")
	ErrNoUserMessage    = errors.New("mapchat: transcript has no user message")
)

// Geocoder returns the single best match for a query, or nil when nothing matched.
type Geocoder interface {
	GeocodeOne(ctx context.Context, q string) (*types.GeocodeHit, error)
}

// POISearcher finds amenity points around a center.
type POISearcher interface {
	NearbyAmenities(ctx context.Context, q types.NearbyQuery) (*geojson.FeatureCollection, error)
}

// PlaceSearcher runs a free-text place search.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, q string, limit int) (*geojson.FeatureCollection, error)
}

// ChatModel streams a reply to the transcript under the given system directive.
type ChatModel interface {
	StreamChat(ctx context.Context, system string, transcript []types.Turn) iter.Seq2[string, error]
}

// SessionCodec carries the published location context between turns.
type SessionCodec interface {
	Encode(sc *types.StickyContext) (string, error)
	Decode(token string) (*types.StickyContext, error)
}

// PipelineConfig holds every tunable of the turn pipeline.
type PipelineConfig struct {
	UpstreamLimit   int     // ranked nearby search fetch size
	FallbackLimit   int     // place search fetch size
	ResultCap       int     // POIs published per turn
	DefaultRadiusM  float64 // used when no better radius is known
	RegionQualifier string  // appended to geocode and place queries
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		UpstreamLimit:   120,
		FallbackLimit:   30,
		ResultCap:       5,
		DefaultRadiusM:  900,
		RegionQualifier: "Singapore",
	}
}

// withDefaults fills zero values from DefaultPipelineConfig.
func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.UpstreamLimit <= 0 {
		c.UpstreamLimit = d.UpstreamLimit
	}
	if c.FallbackLimit <= 0 {
		c.FallbackLimit = d.FallbackLimit
	}
	if c.ResultCap <= 0 {
		c.ResultCap = d.ResultCap
	}
	if c.DefaultRadiusM <= 0 {
		c.DefaultRadiusM = d.DefaultRadiusM
	}
	return c
}
