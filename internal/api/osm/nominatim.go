package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

// nominatimPlace is one element of a Nominatim /search response.
type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	BoundingBox []string          `json:"boundingbox"` // [lat_min, lat_max, lon_min, lon_max]
	GeoJSON     *geojson.Geometry `json:"geojson"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	Importance  float64           `json:"importance"`
	OSMID       int64             `json:"osm_id"`
	OSMType     string            `json:"osm_type"`
	Address     map[string]string `json:"address,omitempty"`
}

func (p nominatimPlace) point() (orb.Point, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return orb.Point{}, false
	}
	pt := orb.Point{lon, lat}
	return pt, geo.ValidCoordinate(pt)
}

func (p nominatimPlace) bound() *orb.Bound {
	if len(p.BoundingBox) != 4 {
		return nil
	}
	var v [4]float64
	for i, s := range p.BoundingBox {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return &orb.Bound{Min: orb.Point{v[2], v[0]}, Max: orb.Point{v[3], v[1]}}
}

func (p nominatimPlace) geometry() orb.Geometry {
	if p.GeoJSON == nil {
		return nil
	}
	return p.GeoJSON.Geometry()
}

func (c *Client) search(ctx context.Context, params url.Values) ([]nominatimPlace, error) {
	params.Set("q", strings.TrimSpace(params.Get("q")))
	params.Set("format", "json")
	params.Set("polygon_geojson", "1")
	endpoint := strings.TrimSuffix(c.cfg.NominatimURL, "/") + "/search?" + params.Encode()

	body, err := c.fetch(ctx, providerNominatim, "nominatim:"+params.Encode(), func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("%w: decode nominatim response: %v", ErrUpstream, err)
	}
	return places, nil
}

// GeocodeOne returns the best match for q, or nil when nothing matched.
func (c *Client) GeocodeOne(ctx context.Context, q string) (*types.GeocodeHit, error) {
	places, err := c.search(ctx, url.Values{"q": {q}, "limit": {"1"}})
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}

	// Only the top-ranked place matters
	it := places[0]
	pt, ok := it.point()
	if !ok {
		c.logger.WarnContext(ctx, "Geocoder returned an unusable coordinate",
			slog.String("query", q), slog.String("lat", it.Lat), slog.String("lon", it.Lon))
		return nil, nil
	}

	hit := &types.GeocodeHit{
		Point:       pt,
		DisplayName: it.DisplayName,
		BBox:        it.bound(),
	}
	// Point outlines are not areas
	if g := it.geometry(); geo.IsArea(g) {
		hit.Area = g
	}
	return hit, nil
}

// SearchPlaces runs a free-text search. Features keep the provider polygon
// when one is returned and fall back to the reported point otherwise.
func (c *Client) SearchPlaces(ctx context.Context, q string, limit int) (*geojson.FeatureCollection, error) {
	params := url.Values{
		"q":              {q},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(limit)},
	}
	places, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, it := range places {
		// Prefer the outline; otherwise the reported point
		g := it.geometry()
		if g == nil {
			pt, ok := it.point()
			if !ok {
				continue
			}
			g = pt
		}

		f := geojson.NewFeature(g)
		f.Properties["display_name"] = it.DisplayName
		f.Properties["type"] = it.Type
		f.Properties["category"] = it.Class
		f.Properties["importance"] = it.Importance
		f.Properties["osm_id"] = it.OSMID
		f.Properties["osm_type"] = it.OSMType
		f.Properties["lat"] = it.Lat
		f.Properties["lon"] = it.Lon
		fc.Append(f)
	}
	return fc, nil
}
