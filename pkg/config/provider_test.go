package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khlaifiabilel/dem4water/internal/szi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestYAMLProviderKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
input:
  szi_file: /data/SZi.dat
  daminfo: /data/daminfo.json
model:
  maemode: hybrid
  zminoffset: 0
output:
  outfile: /out/model.png
catalog:
  backend: sqlite
  dsn: /out/catalog.db
`)

	cfg, err := NewYAMLProvider(path).LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/SZi.dat", cfg.Input.SZIFile)
	assert.Equal(t, "hybrid", cfg.Model.MAEMode)
	assert.Equal(t, 0, cfg.Model.ZMinOffset, "explicit zero overrides the default")
	assert.Equal(t, 11, cfg.Model.WinSize)
	assert.Equal(t, 30, cfg.Model.ZMaxOffset)
	assert.Equal(t, "disabled", cfg.Model.FilterArea)
	assert.Equal(t, 8080, cfg.Server.Port)

	p, err := cfg.Model.Params(431)
	require.NoError(t, err)
	assert.Equal(t, szi.ModeHybrid, p.Mode)
	assert.Equal(t, 431.0, p.DamElevation)
	assert.Equal(t, 0.0, p.ZMinOffset)
}

func TestYAMLProviderErrors(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig()
	assert.Error(t, err)

	_, err = NewYAMLProvider(writeConfig(t, "model: [1, 2")).LoadConfig()
	assert.Error(t, err)
}

func TestModelDataParams(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ModelData)
		wantErr error
	}{
		{name: "defaults", mutate: func(*ModelData) {}},
		{name: "bad maemode", mutate: func(m *ModelData) { m.MAEMode = "median" }, wantErr: szi.ErrInvalidMode},
		{name: "bad selection", mutate: func(m *ModelData) { m.SelectionMode = "all" }, wantErr: szi.ErrInvalidSelectionMode},
		{name: "bad filter_area", mutate: func(m *ModelData) { m.FilterArea = "on" }, wantErr: szi.ErrInvalidFilterArea},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Defaults().Model
			tt.mutate(&m)
			_, err := m.Params(100)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	m := Defaults().Model
	m.WinSize = 0
	_, err := m.Params(100)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.Validate(), "inputs are required")

	cfg.Input = InputData{SZIFile: "a.dat", DamInfo: "d.json"}
	cfg.Output.OutFile = "m.png"
	assert.NoError(t, cfg.Validate())

	cfg.Catalog.Backend = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.Catalog.Backend = "postgres"
	assert.Error(t, cfg.Validate(), "postgres needs a dsn")
}

func TestStaticProvider(t *testing.T) {
	cfg := Defaults()
	got, err := NewStaticProvider(cfg).LoadConfig()
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	_, err = NewStaticProvider(nil).LoadConfig()
	assert.Error(t, err)
}
