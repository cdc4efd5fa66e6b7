package config

import (
	"fmt"

	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)
}

// StaticProvider serves configuration that is already in memory
type StaticProvider struct {
	config *ConfigData
}

// NewStaticProvider wraps cfg in a ConfigProvider
func NewStaticProvider(cfg *ConfigData) *StaticProvider {
	return &StaticProvider{config: cfg}
}

// LoadConfig returns the wrapped configuration
func (s *StaticProvider) LoadConfig() (*ConfigData, error) {
	if s.config == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}
	return s.config, nil
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Input   InputData   `json:"input"`
	Model   ModelData   `json:"model"`
	Output  OutputData  `json:"output"`
	Catalog CatalogData `json:"catalog,omitempty"`
	Server  ServerData  `json:"server,omitempty"`
}

// InputData names the files a run reads
type InputData struct {
	SZIFile  string `json:"szi_file"`
	DamInfo  string `json:"daminfo"`
	Database string `json:"database,omitempty"`
}

// ModelData holds the model options as they appear on the command line.
type ModelData struct {
	WinSize       int     `json:"winsize"`
	ZMaxOffset    int     `json:"zmaxoffset"`
	ZMinOffset    int     `json:"zminoffset"`
	MAEMode       string  `json:"maemode"`
	DSlopeThresh  float64 `json:"dslopethresh"`
	SelectionMode string  `json:"selection_mode"`
	JumpRatio     float64 `json:"jump_ratio"`
	FilterArea    string  `json:"filter_area"`
}

// OutputData names the files a run writes
type OutputData struct {
	OutFile string `json:"outfile"`
	Records string `json:"records,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// CatalogData selects where runs are recorded. Backend is "sqlite",
// "postgres" or empty to disable the catalog.
type CatalogData struct {
	Backend string `json:"backend,omitempty"`
	DSN     string `json:"dsn,omitempty"`
}

// ServerData configures the catalog REST server
type ServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// Defaults returns the stock configuration.
func Defaults() *ConfigData {
	return &ConfigData{
		Model: ModelData{
			WinSize:       11,
			ZMaxOffset:    30,
			ZMinOffset:    10,
			MAEMode:       string(szi.ModeAbsolute),
			DSlopeThresh:  1000,
			SelectionMode: string(szi.SelectionBest),
			JumpRatio:     10,
			FilterArea:    "disabled",
		},
		Server: ServerData{
			ListenAddr: "0.0.0.0",
			Port:       8080,
		},
	}
}

// Params validates the model options and converts them to typed
// parameters for a dam at damElevation.
func (m ModelData) Params(damElevation float64) (szi.Params, error) {
	mode, err := szi.ParseMode(m.MAEMode)
	if err != nil {
		return szi.Params{}, err
	}
	selection, err := szi.ParseSelectionMode(m.SelectionMode)
	if err != nil {
		return szi.Params{}, err
	}
	filter, err := szi.ParseFilterArea(m.FilterArea)
	if err != nil {
		return szi.Params{}, err
	}

	p := szi.Params{
		WinSize:       m.WinSize,
		ZMaxOffset:    float64(m.ZMaxOffset),
		ZMinOffset:    float64(m.ZMinOffset),
		DamElevation:  damElevation,
		Mode:          mode,
		DSlopeThresh:  m.DSlopeThresh,
		SelectionMode: selection,
		JumpRatio:     m.JumpRatio,
		FilterArea:    filter,
	}
	if err := p.Validate(); err != nil {
		return szi.Params{}, fmt.Errorf("invalid model options: %w", err)
	}
	return p, nil
}

// Validate checks what can be checked before any file is read.
func (c *ConfigData) Validate() error {
	if c.Input.SZIFile == "" {
		return fmt.Errorf("szi_file is required")
	}
	if c.Input.DamInfo == "" {
		return fmt.Errorf("daminfo is required")
	}
	if c.Output.OutFile == "" {
		return fmt.Errorf("outfile is required")
	}
	if _, err := c.Model.Params(0); err != nil {
		return err
	}
	switch c.Catalog.Backend {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown catalog backend %q (expected sqlite or postgres)", c.Catalog.Backend)
	}
	if c.Catalog.Backend != "" && c.Catalog.DSN == "" {
		return fmt.Errorf("catalog backend %s needs a dsn", c.Catalog.Backend)
	}
	return nil
}
