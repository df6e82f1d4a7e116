package mapchat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-assistant/internal/api/query"
	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

const defaultTargetName = "Target"

// Resolver decides where the current turn's search is centered.
type Resolver struct {
	geocoder Geocoder
	cfg      PipelineConfig
	logger   *slog.Logger
}

func NewResolver(geocoder Geocoder, cfg PipelineConfig, logger *slog.Logger) *Resolver {
	return &Resolver{geocoder: geocoder, cfg: cfg.withDefaults(), logger: logger}
}

// Resolve picks, in order: a fresh geocode of the turn's location phrase, the
// sticky context, or no center at all. It issues at most one geocode call.
// A geocoder error fails the turn; a geocoder miss does not.
func (r *Resolver) Resolve(ctx context.Context, q query.Query, sticky *types.StickyContext) (types.ResolvedContext, error) {
	ctx, span := otel.Tracer("MapChatService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("query.location", q.Location),
		attribute.Bool("sticky.present", sticky != nil),
	))
	defer span.End()

	if q.HasLocation() {
		geocodeQuery := q.Location
		if r.cfg.RegionQualifier != "" {
			geocodeQuery = q.Location + ", " + r.cfg.RegionQualifier
		}
		hit, err := r.geocoder.GeocodeOne(ctx, geocodeQuery)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Geocode failed")
			return types.ResolvedContext{}, fmt.Errorf("%w: geocode %q: %w", ErrTurnFailed, geocodeQuery, err)
		}
		if hit != nil {
			rc := r.fromHit(hit, sticky)
			span.SetAttributes(attribute.String("resolved.source", string(rc.Source)))
			span.SetStatus(codes.Ok, "Resolved from geocode")
			return rc, nil
		}
		r.logger.DebugContext(ctx, "Location phrase did not geocode", slog.String("query", geocodeQuery))
	}

	if center, ok := sticky.Center(); ok {
		rc := r.fromSticky(center, sticky)
		span.SetAttributes(attribute.String("resolved.source", string(rc.Source)))
		span.SetStatus(codes.Ok, "Resolved from sticky context")
		return rc, nil
	}

	span.SetAttributes(attribute.String("resolved.source", string(types.SourceNone)))
	span.SetStatus(codes.Ok, "No center resolved")
	return types.ResolvedContext{Source: types.SourceNone}, nil
}

func (r *Resolver) fromHit(hit *types.GeocodeHit, sticky *types.StickyContext) types.ResolvedContext {
	center := hit.Point
	rc := types.ResolvedContext{
		Center:  &center,
		Name:    hit.DisplayName,
		RadiusM: r.stickyRadius(sticky),
		Source:  types.SourceExplicit,
	}
	if geo.IsArea(hit.Area) {
		rc.Area = &types.GeoArea{Name: hit.DisplayName, Geometry: hit.Area}
	}
	return rc
}

func (r *Resolver) fromSticky(center orb.Point, sticky *types.StickyContext) types.ResolvedContext {
	name := sticky.Target.Name
	if name == "" {
		name = defaultTargetName
	}
	return types.ResolvedContext{
		Center:  &center,
		Name:    name,
		Area:    sticky.Area,
		RadiusM: r.stickyRadius(sticky),
		Source:  types.SourceSticky,
	}
}

// stickyRadius is the carried radius, else the carried area's approximate
// radius, else the default. A fresh geocode hit's extent is not consulted.
func (r *Resolver) stickyRadius(sticky *types.StickyContext) float64 {
	if sticky == nil {
		return r.cfg.DefaultRadiusM
	}
	if sticky.RadiusM != nil && *sticky.RadiusM > 0 {
		return *sticky.RadiusM
	}
	if sticky.Area != nil {
		if radius, ok := geo.ApproximateRadius(sticky.Area.Geometry); ok && radius > 0 {
			return radius
		}
	}
	return r.cfg.DefaultRadiusM
}
