package mapchat

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

// FeatureCollection lays rs out as area, target, then POIs nearest first.
func FeatureCollection(rs *types.ResultSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if rs == nil {
		return fc
	}

	if rs.Area != nil && rs.Area.Geometry != nil {
		f := geojson.NewFeature(rs.Area.Geometry)
		f.Properties["kind"] = string(types.KindArea)
		f.Properties["name"] = rs.Area.Name
		fc.Append(f)
	}

	if rs.Target != nil {
		f := geojson.NewFeature(rs.Target.Point)
		f.Properties["kind"] = string(types.KindTarget)
		f.Properties["name"] = rs.Target.Name
		if rs.RadiusM > 0 {
			f.Properties["radius_m"] = rs.RadiusM
		}
		fc.Append(f)
	}

	for _, poi := range rs.POIs {
		f := geojson.NewFeature(poi.Point)
		for k, v := range poi.Properties {
			f.Properties[k] = v
		}
		f.Properties["kind"] = string(types.KindPOI)
		if _, ok := f.Properties["name"]; !ok && poi.Name != "" {
			f.Properties["name"] = poi.Name
		}
		if _, ok := f.Properties["category"]; !ok && poi.Category != "" {
			f.Properties["category"] = poi.Category
		}
		// JSON has no Inf; an unmeasured POI carries no dist_m.
		if !math.IsInf(poi.DistM, 0) && !math.IsNaN(poi.DistM) {
			f.Properties["dist_m"] = math.Round(poi.DistM*10) / 10
		}
		fc.Append(f)
	}
	return fc
}

// RenderBlock serializes fc compactly inside a fenced geojson block.
func RenderBlock(fc *geojson.FeatureCollection) (string, error) {
	body, err := json.Marshal(fc)
	if err != nil {
		return "", fmt.Errorf("marshal feature collection: %w", err)
	}
	return "```geojson\n" + string(body) + "\n```", nil
}

// Directive is the system instruction for the language model: a short
// summary, then the block reproduced untouched.
func Directive(region, block string) string {
	var b strings.Builder
	b.WriteString("You are a location-intelligence assistant")
	if region != "" {
		b.WriteString(" for ")
		b.WriteString(region)
	}
	b.WriteString(".\n\n")
	b.WriteString("- If the user does not specify a location in this turn, infer it from the prior conversation (the last feature marked \"target\").\n")
	b.WriteString("- Keep responses short (1-2 sentences).\n")
	b.WriteString("- Then output EXACTLY the FeatureCollection below inside a fenced ```geojson code block. ")
	b.WriteString("Reproduce it byte-for-byte: do not reformat, reorder or edit it.\n")
	b.WriteString("- If the FeatureCollection has no features, say you couldn't find matching places and still output the block.\n\n")
	b.WriteString("FeatureCollection to render:\n")
	b.WriteString(block)
	return b.String()
}
