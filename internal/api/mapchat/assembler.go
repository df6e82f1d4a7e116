package mapchat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-assistant/internal/api/query"
	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

// Assembler builds the ResultSet for a resolved turn.
type Assembler struct {
	pois   POISearcher
	places PlaceSearcher
	cfg    PipelineConfig
	logger *slog.Logger
}

func NewAssembler(pois POISearcher, places PlaceSearcher, cfg PipelineConfig, logger *slog.Logger) *Assembler {
	return &Assembler{pois: pois, places: places, cfg: cfg.withDefaults(), logger: logger}
}

// Assemble runs the ranked nearby search when the turn has tags and a center,
// and the free-text place search otherwise or when that came back empty.
func (a *Assembler) Assemble(ctx context.Context, q query.Query, rc types.ResolvedContext) (*types.ResultSet, error) {
	ctx, span := otel.Tracer("MapChatService").Start(ctx, "Assemble", trace.WithAttributes(
		attribute.Int("query.tags", len(q.Tags)),
		attribute.Bool("resolved.center", rc.Center != nil),
	))
	defer span.End()

	rs := &types.ResultSet{Area: rc.Area, RadiusM: rc.RadiusM}
	if rc.Center != nil {
		name := rc.Name
		if name == "" {
			name = defaultTargetName
		}
		rs.Target = &types.TargetPoint{Name: name, Point: *rc.Center}
	}

	if len(q.Tags) > 0 && rc.Center != nil {
		fc, err := a.pois.NearbyAmenities(ctx, types.NearbyQuery{
			Center:  *rc.Center,
			RadiusM: rc.RadiusM,
			Tags:    q.Tags,
			Limit:   a.cfg.UpstreamLimit,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "POI search failed")
			return nil, fmt.Errorf("%w: poi search: %w", ErrTurnFailed, err)
		}
		rs.POIs = a.rank(fc, rc.Center)
		if len(rs.POIs) > 0 {
			span.SetAttributes(attribute.String("assemble.path", "nearby"), attribute.Int("result.pois", len(rs.POIs)))
			span.SetStatus(codes.Ok, "Ranked nearby search")
			return rs, nil
		}
		a.logger.DebugContext(ctx, "Nearby search returned no points, falling back to place search")
	}

	placeQuery := a.fallbackQuery(q, rc)
	if placeQuery == "" {
		span.SetAttributes(attribute.String("assemble.path", "none"))
		span.SetStatus(codes.Ok, "Nothing to search for")
		return rs, nil
	}

	fc, err := a.places.SearchPlaces(ctx, placeQuery, a.cfg.FallbackLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place search failed")
		return nil, fmt.Errorf("%w: place search: %w", ErrTurnFailed, err)
	}
	rs.POIs = a.rank(fc, rc.Center)

	span.SetAttributes(attribute.String("assemble.path", "place_search"), attribute.Int("result.pois", len(rs.POIs)))
	span.SetStatus(codes.Ok, "Place search")
	return rs, nil
}

// fallbackQuery joins the first tag, the resolved name (or the raw phrase) and
// the region qualifier. With neither a tag nor a location it is the raw text.
func (a *Assembler) fallbackQuery(q query.Query, rc types.ResolvedContext) string {
	location := rc.Name
	if location == "" {
		location = q.Location
	}
	tag := string(q.FirstTag())
	if tag == "" && location == "" {
		return strings.TrimSpace(q.Raw)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{tag, location, a.cfg.RegionQualifier} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// rank keeps Point features, measures them from center (+Inf without one),
// sorts nearest first keeping provider order on ties, and applies the cap.
func (a *Assembler) rank(fc *geojson.FeatureCollection, center *orb.Point) []types.POI {
	if fc == nil {
		return nil
	}
	pois := make([]types.POI, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok || !geo.ValidCoordinate(pt) {
			continue
		}
		dist := math.Inf(1)
		if center != nil {
			dist = geo.Haversine(*center, pt)
		}
		pois = append(pois, types.POI{
			Name:       poiName(f.Properties),
			Category:   poiCategory(f.Properties),
			Point:      pt,
			DistM:      dist,
			Properties: f.Properties.Clone(),
		})
	}

	sort.SliceStable(pois, func(i, j int) bool { return pois[i].DistM < pois[j].DistM })
	if len(pois) > a.cfg.ResultCap {
		pois = pois[:a.cfg.ResultCap]
	}
	return pois
}

func poiName(p geojson.Properties) string {
	if name := p.MustString("name", ""); name != "" {
		return name
	}
	if display := p.MustString("display_name", ""); display != "" {
		name, _, _ := strings.Cut(display, ",")
		return strings.TrimSpace(name)
	}
	return ""
}

func poiCategory(p geojson.Properties) string {
	if amenity := p.MustString("amenity", ""); amenity != "" {
		return amenity
	}
	return p.MustString("type", "")
}
