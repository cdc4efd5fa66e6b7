// Package report writes the fitted model and its diagnostics to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// ModelDocument is the JSON model file consumed downstream.
type ModelDocument struct {
	ID        string      `json:"ID"`
	Name      string      `json:"Name"`
	Elevation float64     `json:"Elevation"`
	Model     ModelParams `json:"Model"`
}

// ModelParams are the power-law parameters of a ModelDocument
type ModelParams struct {
	Z0    float64 `json:"Z0"`
	S0    float64 `json:"S0"`
	V0    float64 `json:"V0"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// NewModelDocument pairs a model with its dam metadata.
func NewModelDocument(info *daminfo.DamInfo, m szi.Model) ModelDocument {
	return ModelDocument{
		ID:        info.ID,
		Name:      info.Name,
		Elevation: info.Elevation,
		Model: ModelParams{
			Z0:    m.Z0,
			S0:    m.S0,
			V0:    m.V0,
			Alpha: m.Alpha,
			Beta:  m.Beta,
		},
	}
}

// SZIModel converts the document back to a model.
func (d ModelDocument) SZIModel() szi.Model {
	return szi.Model{Z0: d.Model.Z0, S0: d.Model.S0, V0: d.Model.V0, Alpha: d.Model.Alpha, Beta: d.Model.Beta}
}

// WriteModel writes doc as JSON to path.
func WriteModel(path string, doc ModelDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing model %s: %w", path, err)
	}
	return nil
}

// ReadModel reads a JSON model file.
func ReadModel(path string) (ModelDocument, error) {
	var doc ModelDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading model %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decoding model %s: %w", path, err)
	}
	return doc, nil
}

// BasePath strips the extension of outfile; every artifact name derives from it.
func BasePath(outfile string) string {
	return strings.TrimSuffix(outfile, filepath.Ext(outfile))
}
