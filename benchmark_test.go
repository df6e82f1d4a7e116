package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/FACorreiaa/go-map-assistant/internal/api/cache"
	"github.com/FACorreiaa/go-map-assistant/internal/api/mapchat"
	"github.com/FACorreiaa/go-map-assistant/internal/api/osm"
	"github.com/FACorreiaa/go-map-assistant/internal/api/query"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

func benchmarkResult(pois int) *types.ResultSet {
	rs := &types.ResultSet{
		Area: &types.GeoArea{Name: "one-north", Geometry: orb.Polygon{{
			{103.78, 1.29}, {103.795, 1.29}, {103.795, 1.31}, {103.78, 1.31}, {103.78, 1.29},
		}}},
		Target:  &types.TargetPoint{Name: "one-north", Point: orb.Point{103.7876, 1.2996}},
		RadiusM: 1100,
	}
	for i := 0; i < pois; i++ {
		rs.POIs = append(rs.POIs, types.POI{
			Name:     fmt.Sprintf("Cafe %d", i),
			Category: "cafe",
			Point:    orb.Point{103.7876 + float64(i)*0.0005, 1.2996},
			DistM:    float64(i) * 55.6,
		})
	}
	return rs
}

// benchmarkTranscript alternates user and assistant turns; every assistant
// turn carries a rendered block.
func benchmarkTranscript(b *testing.B, turns int) []types.Turn {
	b.Helper()
	block, err := mapchat.RenderBlock(mapchat.FeatureCollection(benchmarkResult(5)))
	if err != nil {
		b.Fatal(err)
	}
	transcript := make([]types.Turn, 0, turns)
	for i := 0; i < turns; i++ {
		if i%2 == 0 {
			transcript = append(transcript, user("any cafes around one north?"))
			continue
		}
		transcript = append(transcript, types.Turn{
			Role:    types.RoleAssistant,
			Content: types.TextContent("A few options nearby.\n\n" + block),
		})
	}
	return append(transcript, user("what about bars there"))
}

func BenchmarkParse(b *testing.B) {
	inputs := []string{
		"find cafes near one north",
		"any vegetarian spots there",
		"lunch in tiong bahru, please",
		"recommend something fun",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		query.Parse(inputs[i%len(inputs)])
	}
}

func BenchmarkExtractStickyContext(b *testing.B) {
	for _, turns := range []int{2, 20, 200} {
		transcript := benchmarkTranscript(b, turns)
		b.Run(fmt.Sprintf("turns=%d", turns), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if mapchat.ExtractStickyContext(transcript) == nil {
					b.Fatal("expected sticky context")
				}
			}
		})
	}
}

func BenchmarkRenderBlock(b *testing.B) {
	rs := benchmarkResult(5)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := mapchat.RenderBlock(mapchat.FeatureCollection(rs)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkResolveTurn measures a cached turn end to end, provider I/O
// excluded after the first iteration.
func BenchmarkResolveTurn(b *testing.B) {
	providers := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/search") {
			_, _ = w.Write([]byte(oneNorthPlace))
			return
		}
		_, _ = w.Write([]byte(oneNorthCafes))
	}))
	defer providers.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := osm.NewClient(osm.Config{
		NominatimURL: providers.URL,
		OverpassURL:  providers.URL + "/api/interpreter",
		Timeout:      5 * time.Second,
		CacheTTL:     time.Hour,
	}, cache.NewMemoryStore(time.Hour, time.Hour), logger)
	svc := mapchat.NewServiceImpl(client, client, client, nil, nil, mapchat.DefaultPipelineConfig(), logger)

	req := mapchat.TurnRequest{Messages: []types.Turn{user("find cafes near one north")}}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ResolveTurn(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
