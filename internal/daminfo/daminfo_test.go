package daminfo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const damInfoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1.0, 43.0]},
     "properties": {"name": "PDB", "elev": "402.5"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1.1, 43.1]},
     "properties": {"name": "Dam", "damname": "Montbel", "elev": 431.0, "ID": 1293}}
  ]
}`

func TestParse(t *testing.T) {
	info, err := Parse([]byte(damInfoJSON))
	require.NoError(t, err)

	assert.Equal(t, "1293", info.ID)
	assert.Equal(t, "Montbel", info.Name)
	assert.Equal(t, 431.0, info.Elevation)
	assert.True(t, info.HasPDB)
	assert.Equal(t, 402.5, info.PDBElevation)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not geojson", data: `{"type": "Feature"`},
		{name: "no dam", data: `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"name": "PDB", "elev": 1}}]}`},
		{name: "bad elevation", data: `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"name": "Dam", "damname": "X", "elev": "high"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(`{"type": "FeatureCollection", "features": []}`))
	assert.True(t, errors.Is(err, ErrNoDam))
}

func square(x0, y0, side float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0}}
}

func TestCloseHoles(t *testing.T) {
	t.Run("polygon keeps exterior ring", func(t *testing.T) {
		p := orb.Polygon{square(0, 0, 10), square(2, 2, 2)}
		out, ok := CloseHoles(p).(orb.Polygon)
		require.True(t, ok)
		assert.Len(t, out, 1)
		assert.Equal(t, square(0, 0, 10), out[0])
	})

	t.Run("multipolygon drops islands inside the largest part", func(t *testing.T) {
		mp := orb.MultiPolygon{
			{square(3, 3, 1)},
			{square(0, 0, 10), square(2, 2, 5)},
			{square(20, 20, 2)},
		}
		out, ok := CloseHoles(mp).(orb.MultiPolygon)
		require.True(t, ok)
		require.Len(t, out, 2)
		assert.Equal(t, square(0, 0, 10), out[0][0])
		assert.Equal(t, square(20, 20, 2), out[1][0])
	})

	t.Run("single remaining part is a polygon", func(t *testing.T) {
		mp := orb.MultiPolygon{{square(0, 0, 10)}, {square(4, 4, 1)}}
		_, ok := CloseHoles(mp).(orb.Polygon)
		assert.True(t, ok)
	})

	t.Run("points have no area", func(t *testing.T) {
		assert.Nil(t, CloseHoles(orb.Point{1, 2}))
	})
}

func TestWaterBodyArea(t *testing.T) {
	const db = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"DAM_NAME": "Other"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"DAM_NAME": "MONTBEL"},
     "geometry": {"type": "Polygon", "coordinates": [
       [[0,0],[1000,0],[1000,500],[0,500],[0,0]],
       [[100,100],[200,100],[200,200],[100,200],[100,100]]]}}
  ]
}`
	path := filepath.Join(t.TempDir(), "db.geojson")
	require.NoError(t, os.WriteFile(path, []byte(db), 0o644))

	area, err := WaterBodyArea(path, "Montbel")
	require.NoError(t, err)
	assert.InDelta(t, 500000, area, 1e-6)

	_, err = WaterBodyArea(path, "Unknown")
	assert.Error(t, err)
}
