package mapchat

import (
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var fencedBlockRe = regexp.MustCompile("(?i)```(?:geo)?json\\s*([\\s\\S]*?)```")

// lastFeatureCollection decodes the last fenced geojson/json block in text.
func lastFeatureCollection(text string) (*geojson.FeatureCollection, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false
	}
	body := matches[len(matches)-1][1]

	fc, err := geojson.UnmarshalFeatureCollection([]byte(body))
	if err != nil || fc.Type != "FeatureCollection" {
		return nil, false
	}
	return fc, true
}

func featureKind(f *geojson.Feature) types.FeatureKind {
	return types.FeatureKind(f.Properties.MustString("kind", ""))
}

func featureName(f *geojson.Feature) string {
	return f.Properties.MustString("name", "")
}

// ExtractStickyContext recovers the location context published by the most
// recent assistant turn that carried one. It returns nil when no turn did.
func ExtractStickyContext(turns []types.Turn) *types.StickyContext {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role != types.RoleAssistant {
			continue
		}
		fc, ok := lastFeatureCollection(t.Text())
		if !ok {
			continue
		}
		if sc := stickyFromCollection(fc); sc != nil {
			return sc
		}
	}
	return nil
}

func stickyFromCollection(fc *geojson.FeatureCollection) *types.StickyContext {
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok || featureKind(f) != types.KindTarget || !geo.ValidCoordinate(pt) {
			continue
		}

		sc := &types.StickyContext{
			Target: &types.TargetPoint{Name: featureName(f), Point: pt},
		}
		for _, a := range fc.Features {
			if featureKind(a) == types.KindArea && geo.IsArea(a.Geometry) {
				sc.Area = &types.GeoArea{Name: featureName(a), Geometry: a.Geometry}
				break
			}
		}

		if r := f.Properties.MustFloat64("radius_m", 0); r > 0 {
			sc.RadiusM = &r
		} else if sc.Area != nil {
			if r, ok := geo.ApproximateRadius(sc.Area.Geometry); ok {
				sc.RadiusM = &r
			}
		}
		return sc
	}

	for _, f := range fc.Features {
		if !geo.IsArea(f.Geometry) {
			continue
		}
		center, ok := geo.BBoxCentroid(f.Geometry)
		if !ok {
			continue
		}
		name := featureName(f)
		r, _ := geo.ApproximateRadius(f.Geometry)
		return &types.StickyContext{
			Target:  &types.TargetPoint{Name: name, Point: center},
			Area:    &types.GeoArea{Name: name, Geometry: f.Geometry},
			RadiusM: &r,
		}
	}
	return nil
}

// StickyFromResult is the context a later turn recovers from rs.
func StickyFromResult(rs *types.ResultSet) *types.StickyContext {
	if rs == nil || rs.Target == nil {
		return nil
	}
	sc := &types.StickyContext{Target: rs.Target, Area: rs.Area}
	if rs.RadiusM > 0 {
		r := rs.RadiusM
		sc.RadiusM = &r
	}
	return sc
}
