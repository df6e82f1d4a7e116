package mapchat

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-map-assistant/internal/api/query"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var center = orb.Point{103.82, 1.35}

func stickyResolved() types.ResolvedContext {
	c := center
	return types.ResolvedContext{Center: &c, Name: "One-North", RadiusM: 900, Source: types.SourceSticky}
}

func nearbyCollection() *geojson.FeatureCollection {
	return collection(
		pointFeature(103.830, 1.350, map[string]interface{}{"name": "Far", "amenity": "cafe"}),
		pointFeature(103.821, 1.350, map[string]interface{}{"name": "Near A", "amenity": "cafe"}),
		geojson.NewFeature(orb.LineString{{103.82, 1.35}, {103.83, 1.36}}),
		pointFeature(103.821, 1.350, map[string]interface{}{"name": "Near B", "amenity": "cafe"}),
		pointFeature(103.825, 1.350, map[string]interface{}{"name": "Mid", "amenity": "bar"}),
		pointFeature(103.822, 1.350, map[string]interface{}{"name": "Second", "amenity": "cafe"}),
		pointFeature(103.840, 1.350, map[string]interface{}{"name": "Farthest", "amenity": "cafe"}),
		pointFeature(103.823, 1.350, map[string]interface{}{"name": "Third", "amenity": "cafe"}),
	)
}

func TestAssembler_RankedNearbySearch(t *testing.T) {
	pois := new(MockPOISearcher)
	places := new(MockPlaceSearcher)

	pois.On("NearbyAmenities", mock.Anything, types.NearbyQuery{
		Center:  center,
		RadiusM: 900,
		Tags:    []types.Tag{types.TagCafe, types.TagBar},
		Limit:   120,
	}).Return(nearbyCollection(), nil).Once()

	a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
	rs, err := a.Assemble(context.Background(), query.Parse("cafes and bars"), stickyResolved())
	require.NoError(t, err)

	require.Len(t, rs.POIs, 5)
	names := make([]string, 0, len(rs.POIs))
	for i, p := range rs.POIs {
		names = append(names, p.Name)
		if i > 0 {
			assert.LessOrEqual(t, rs.POIs[i-1].DistM, p.DistM)
		}
	}
	// Near A and Near B are equidistant and keep provider order.
	assert.Equal(t, []string{"Near A", "Near B", "Second", "Third", "Mid"}, names)
	assert.Equal(t, "bar", rs.POIs[4].Category)

	require.NotNil(t, rs.Target)
	assert.Equal(t, "One-North", rs.Target.Name)
	assert.Equal(t, 900.0, rs.RadiusM)

	pois.AssertExpectations(t)
	places.AssertNotCalled(t, "SearchPlaces", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssembler_EmptyTagsNeverRunsNearbySearch(t *testing.T) {
	pois := new(MockPOISearcher)
	places := new(MockPlaceSearcher)
	places.On("SearchPlaces", mock.Anything, "One-North Singapore", 30).
		Return(collection(pointFeature(103.821, 1.35, map[string]interface{}{"display_name": "One-North MRT, Singapore", "type": "station"})), nil).Once()

	a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
	rs, err := a.Assemble(context.Background(), query.Parse("what is there to do"), stickyResolved())
	require.NoError(t, err)

	require.Len(t, rs.POIs, 1)
	assert.Equal(t, "One-North MRT", rs.POIs[0].Name)
	assert.Equal(t, "station", rs.POIs[0].Category)
	assert.False(t, math.IsInf(rs.POIs[0].DistM, 1))

	pois.AssertNotCalled(t, "NearbyAmenities", mock.Anything, mock.Anything)
	places.AssertExpectations(t)
}

func TestAssembler_EmptyNearbyFallsBackToPlaceSearch(t *testing.T) {
	pois := new(MockPOISearcher)
	places := new(MockPlaceSearcher)
	pois.On("NearbyAmenities", mock.Anything, mock.Anything).Return(geojson.NewFeatureCollection(), nil).Once()
	places.On("SearchPlaces", mock.Anything, "park One-North Singapore", 30).Return(geojson.NewFeatureCollection(), nil).Once()

	a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
	rs, err := a.Assemble(context.Background(), query.Parse("any parks?"), stickyResolved())
	require.NoError(t, err)

	assert.Empty(t, rs.POIs)
	require.NotNil(t, rs.Target)
	pois.AssertExpectations(t)
	places.AssertExpectations(t)
}

func TestAssembler_NoCenterKeepsProviderOrder(t *testing.T) {
	pois := new(MockPOISearcher)
	places := new(MockPlaceSearcher)

	fc := geojson.NewFeatureCollection()
	for _, name := range []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7"} {
		fc.Append(pointFeature(103.8, 1.3, map[string]interface{}{"name": name}))
	}
	fc.Append(geojson.NewFeature(oneNorthArea))
	places.On("SearchPlaces", mock.Anything, "cafe atlantis Singapore", 30).Return(fc, nil).Once()

	a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
	rs, err := a.Assemble(context.Background(), query.Parse("cafes near atlantis"), types.ResolvedContext{Source: types.SourceNone})
	require.NoError(t, err)

	require.Len(t, rs.POIs, 5)
	for i, p := range rs.POIs {
		assert.Equal(t, []string{"P1", "P2", "P3", "P4", "P5"}[i], p.Name)
		assert.True(t, math.IsInf(p.DistM, 1))
	}
	assert.Nil(t, rs.Target)
	assert.Nil(t, rs.Area)
	pois.AssertNotCalled(t, "NearbyAmenities", mock.Anything, mock.Anything)
}

func TestAssembler_FallbackQuery(t *testing.T) {
	a := NewAssembler(nil, nil, DefaultPipelineConfig(), testLogger())

	tests := []struct {
		name string
		text string
		rc   types.ResolvedContext
		want string
	}{
		{"tag and resolved name", "cafes", stickyResolved(), "cafe One-North Singapore"},
		{"tag and phrase", "cafes near atlantis", types.ResolvedContext{}, "cafe atlantis Singapore"},
		{"tag only", "coffee please", types.ResolvedContext{}, "cafe Singapore"},
		{"location only", "what is near atlantis", types.ResolvedContext{}, "atlantis Singapore"},
		{"raw text", "  hello there  ", types.ResolvedContext{}, "hello there"},
		{"nothing", "   ", types.ResolvedContext{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.fallbackQuery(query.Parse(tt.text), tt.rc))
		})
	}
}

func TestAssembler_UpstreamErrorsFailTheTurn(t *testing.T) {
	upstream := errors.New("503 from provider")

	t.Run("nearby search", func(t *testing.T) {
		pois := new(MockPOISearcher)
		places := new(MockPlaceSearcher)
		pois.On("NearbyAmenities", mock.Anything, mock.Anything).Return(nil, upstream)

		a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
		rs, err := a.Assemble(context.Background(), query.Parse("cafes"), stickyResolved())
		assert.Nil(t, rs)
		assert.ErrorIs(t, err, ErrTurnFailed)
		assert.ErrorIs(t, err, upstream)
		places.AssertNotCalled(t, "SearchPlaces", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("place search", func(t *testing.T) {
		pois := new(MockPOISearcher)
		places := new(MockPlaceSearcher)
		places.On("SearchPlaces", mock.Anything, mock.Anything, mock.Anything).Return(nil, upstream)

		a := NewAssembler(pois, places, DefaultPipelineConfig(), testLogger())
		rs, err := a.Assemble(context.Background(), query.Parse("hello"), types.ResolvedContext{})
		assert.Nil(t, rs)
		assert.ErrorIs(t, err, ErrTurnFailed)
	})
}

func TestAssembler_ResultCapIsConfigurable(t *testing.T) {
	pois := new(MockPOISearcher)
	pois.On("NearbyAmenities", mock.Anything, mock.MatchedBy(func(q types.NearbyQuery) bool {
		return q.Limit == 50
	})).Return(nearbyCollection(), nil).Once()

	cfg := DefaultPipelineConfig()
	cfg.ResultCap = 2
	cfg.UpstreamLimit = 50
	a := NewAssembler(pois, new(MockPlaceSearcher), cfg, testLogger())

	rs, err := a.Assemble(context.Background(), query.Parse("cafes"), stickyResolved())
	require.NoError(t, err)
	assert.Len(t, rs.POIs, 2)
	pois.AssertExpectations(t)
}
