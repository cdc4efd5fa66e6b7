package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML representation of the configuration. Pointers tell an unset option
// apart from a zero value so that defaults survive partial files.
type yamlConfig struct {
	Input struct {
		SZIFile  string `yaml:"szi_file"`
		DamInfo  string `yaml:"daminfo"`
		Database string `yaml:"database"`
	} `yaml:"input"`
	Model struct {
		WinSize       *int     `yaml:"winsize"`
		ZMaxOffset    *int     `yaml:"zmaxoffset"`
		ZMinOffset    *int     `yaml:"zminoffset"`
		MAEMode       *string  `yaml:"maemode"`
		DSlopeThresh  *float64 `yaml:"dslopethresh"`
		SelectionMode *string  `yaml:"selection_mode"`
		JumpRatio     *float64 `yaml:"jump_ratio"`
		FilterArea    *string  `yaml:"filter_area"`
	} `yaml:"model"`
	Output struct {
		OutFile string `yaml:"outfile"`
		Records string `yaml:"records"`
		HTML    string `yaml:"html"`
	} `yaml:"output"`
	Catalog struct {
		Backend string `yaml:"backend"`
		DSN     string `yaml:"dsn"`
	} `yaml:"catalog"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		Port       int    `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig loads the complete configuration from YAML file on top of Defaults
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", y.filename, err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(cfgFile, &yc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", y.filename, err)
	}

	config := Defaults()
	config.Input = InputData{
		SZIFile:  yc.Input.SZIFile,
		DamInfo:  yc.Input.DamInfo,
		Database: yc.Input.Database,
	}
	config.Output = OutputData{
		OutFile: yc.Output.OutFile,
		Records: yc.Output.Records,
		HTML:    yc.Output.HTML,
	}
	config.Catalog = CatalogData{
		Backend: yc.Catalog.Backend,
		DSN:     yc.Catalog.DSN,
	}
	if yc.Server.ListenAddr != "" {
		config.Server.ListenAddr = yc.Server.ListenAddr
	}
	if yc.Server.Port != 0 {
		config.Server.Port = yc.Server.Port
	}

	m := &config.Model
	setIf(&m.WinSize, yc.Model.WinSize)
	setIf(&m.ZMaxOffset, yc.Model.ZMaxOffset)
	setIf(&m.ZMinOffset, yc.Model.ZMinOffset)
	setIf(&m.MAEMode, yc.Model.MAEMode)
	setIf(&m.DSlopeThresh, yc.Model.DSlopeThresh)
	setIf(&m.SelectionMode, yc.Model.SelectionMode)
	setIf(&m.JumpRatio, yc.Model.JumpRatio)
	setIf(&m.FilterArea, yc.Model.FilterArea)

	return config, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
