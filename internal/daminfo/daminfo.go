// Package daminfo reads dam metadata and reference water-body outlines from GeoJSON.
package daminfo

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// ErrNoDam is returned when a daminfo file has no "Dam" feature
var ErrNoDam = errors.New("no Dam feature found")

// DamInfo holds what the model needs to know about a dam.
type DamInfo struct {
	ID        string
	Name      string
	Elevation float64
	// PDBElevation is the elevation of the deepest point of the reservoir
	// bottom when the daminfo file carries a "PDB" feature.
	PDBElevation float64
	HasPDB       bool
}

// Load reads a daminfo GeoJSON file.
func Load(path string) (*DamInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading daminfo %s: %w", path, err)
	}
	info, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("daminfo %s: %w", path, err)
	}
	return info, nil
}

// Parse extracts the dam name, elevation and ID from the feature whose
// "name" property is "Dam".
func Parse(data []byte) (*DamInfo, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}

	var info *DamInfo
	var pdb *float64
	for _, f := range fc.Features {
		switch propString(f.Properties, "name") {
		case "Dam":
			elev, err := propFloat(f.Properties, "elev")
			if err != nil {
				return nil, fmt.Errorf("dam elevation: %w", err)
			}
			info = &DamInfo{
				ID:        propString(f.Properties, "ID"),
				Name:      propString(f.Properties, "damname"),
				Elevation: elev,
			}
		case "PDB":
			if elev, err := propFloat(f.Properties, "elev"); err == nil {
				pdb = &elev
			}
		}
	}
	if info == nil {
		return nil, ErrNoDam
	}
	if pdb != nil {
		info.PDBElevation, info.HasPDB = *pdb, true
	}
	return info, nil
}

func propString(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func propFloat(p geojson.Properties, key string) (float64, error) {
	switch v := p[key].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("property %q: %w", key, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("property %q is missing", key)
	default:
		return 0, fmt.Errorf("property %q has unexpected type %T", key, v)
	}
}
