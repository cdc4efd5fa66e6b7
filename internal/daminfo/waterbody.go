package daminfo

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// nameKeys are the properties checked, in order, to match a water body to a dam
var nameKeys = []string{"DAM_NAME", "damname", "name"}

// WaterBodyArea returns the hole-free area of the water body associated with
// damName in a database GeoJSON file. Coordinates must be in a projected
// system measured in meters.
func WaterBodyArea(path, damName string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading water body database %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	for _, f := range fc.Features {
		if !matchesDam(f.Properties, damName) {
			continue
		}
		g := CloseHoles(f.Geometry)
		if g == nil {
			return 0, fmt.Errorf("water body %q has no polygon geometry", damName)
		}
		return math.Abs(planar.Area(g)), nil
	}
	return 0, fmt.Errorf("no water body named %q in %s", damName, path)
}

func matchesDam(p geojson.Properties, damName string) bool {
	for _, key := range nameKeys {
		if v := propString(p, key); v != "" && strings.EqualFold(v, damName) {
			return true
		}
	}
	return false
}

// CloseHoles drops the interior rings of polygons. For a multipolygon the
// largest part is kept along with the parts lying outside of it. Geometries
// other than polygons return nil.
func CloseHoles(g orb.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		return exterior(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil
		}
		parts := make([]orb.Polygon, len(geom))
		big := 0
		for i, p := range geom {
			parts[i] = exterior(p)
			if math.Abs(planar.Area(parts[i])) > math.Abs(planar.Area(parts[big])) {
				big = i
			}
		}
		out := orb.MultiPolygon{parts[big]}
		for i, p := range parts {
			if i != big && !within(p, parts[big]) {
				out = append(out, p)
			}
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	}
	return nil
}

func exterior(p orb.Polygon) orb.Polygon {
	if len(p) == 0 {
		return p
	}
	return orb.Polygon{p[0]}
}

// within reports whether every vertex of p lies inside outer.
func within(p, outer orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	for _, pt := range p[0] {
		if !planar.PolygonContains(outer, pt) {
			return false
		}
	}
	return true
}
