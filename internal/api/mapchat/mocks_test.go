package mapchat

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) GeocodeOne(ctx context.Context, q string) (*types.GeocodeHit, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GeocodeHit), args.Error(1)
}

type MockPOISearcher struct {
	mock.Mock
}

func (m *MockPOISearcher) NearbyAmenities(ctx context.Context, q types.NearbyQuery) (*geojson.FeatureCollection, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geojson.FeatureCollection), args.Error(1)
}

type MockPlaceSearcher struct {
	mock.Mock
}

func (m *MockPlaceSearcher) SearchPlaces(ctx context.Context, q string, limit int) (*geojson.FeatureCollection, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geojson.FeatureCollection), args.Error(1)
}

type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) StreamChat(ctx context.Context, system string, transcript []types.Turn) iter.Seq2[string, error] {
	args := m.Called(ctx, system, transcript)
	return args.Get(0).(iter.Seq2[string, error])
}

type MockService struct {
	mock.Mock
}

func (m *MockService) ResolveTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TurnResult), args.Error(1)
}

func (m *MockService) StreamTurn(ctx context.Context, req TurnRequest) (*types.StreamingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StreamingResponse), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deltas(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func pointFeature(lon, lat float64, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{lon, lat})
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	return fc
}

// assistantTurn renders rs the way a well-behaved model echoes it back.
func assistantTurn(rs *types.ResultSet) types.Turn {
	block, err := RenderBlock(FeatureCollection(rs))
	if err != nil {
		panic(err)
	}
	return types.Turn{
		Role:    types.RoleAssistant,
		Content: types.TextContent("Here are a few options nearby.\n\n" + block),
	}
}

func userTurn(text string) types.Turn {
	return types.Turn{Role: types.RoleUser, Content: types.TextContent(text)}
}

var oneNorthArea = orb.Polygon{{
	{103.78, 1.29}, {103.795, 1.29}, {103.795, 1.31}, {103.78, 1.31}, {103.78, 1.29},
}}
