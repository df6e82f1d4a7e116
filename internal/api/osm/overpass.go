package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// overpassProperties are copied from element tags when present.
var overpassProperties = []string{"name", "amenity", "opening_hours", "cuisine", "website"}

// buildOverpassQuery returns the QL union of one around-filter per tag.
func buildOverpassQuery(q types.NearbyQuery) string {
	lat := strconv.FormatFloat(q.Center.Lat(), 'f', -1, 64)
	lon := strconv.FormatFloat(q.Center.Lon(), 'f', -1, 64)
	radius := strconv.FormatFloat(q.RadiusM, 'f', 0, 64)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, tag := range q.Tags {
		fmt.Fprintf(&b, "  node[\"amenity\"=%q](around:%s,%s,%s);\n", string(tag), radius, lat, lon)
	}
	b.WriteString(");\n")
	fmt.Fprintf(&b, "out center qt %d;", q.Limit)
	return b.String()
}

// NearbyAmenities returns amenity nodes matching any of q.Tags within
// q.RadiusM of q.Center, as Point features in provider order.
func (c *Client) NearbyAmenities(ctx context.Context, q types.NearbyQuery) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	if len(q.Tags) == 0 {
		return fc, nil
	}

	// The QL text is the cache key, so identical searches share an entry
	ql := buildOverpassQuery(q)
	form := url.Values{"data": {ql}}.Encode()

	body, err := c.fetch(ctx, providerOverpass, "overpass:"+ql, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OverpassURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode overpass response: %v", ErrUpstream, err)
	}

	// Keep nodes with usable coordinates; ways and relations are dropped
	for _, el := range resp.Elements {
		if el.Type != "node" {
			continue
		}
		pt := orb.Point{el.Lon, el.Lat}
		if !geo.ValidCoordinate(pt) {
			continue
		}
		f := geojson.NewFeature(pt)
		f.Properties["id"] = el.ID
		for _, k := range overpassProperties {
			if v, ok := el.Tags[k]; ok && v != "" {
				f.Properties[k] = v
			}
		}
		fc.Append(f)
	}
	return fc, nil
}
