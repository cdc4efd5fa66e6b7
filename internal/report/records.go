package report

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// RecordDump is the msgpack snapshot of a scan, kept for offline analysis.
type RecordDump struct {
	DamID        string       `msgpack:"dam_id"`
	DamName      string       `msgpack:"dam_name"`
	DamElevation float64      `msgpack:"dam_elevation"`
	Mode         string       `msgpack:"mode"`
	Shortage     string       `msgpack:"shortage"`
	Samples      [][2]float64 `msgpack:"samples"`
	Records      []szi.Window `msgpack:"records"`
	Skipped      []int        `msgpack:"skipped,omitempty"`
	Absolute     szi.Window   `msgpack:"absolute"`
	Selected     szi.Window   `msgpack:"selected"`
	Found        bool         `msgpack:"found"`
}

// NewRecordDump snapshots an estimation result.
func NewRecordDump(id, name string, damElevation float64, res *szi.Result) RecordDump {
	samples := make([][2]float64, len(res.Prepared.Series))
	for i, p := range res.Prepared.Series {
		samples[i] = [2]float64{p.Z, p.S}
	}
	return RecordDump{
		DamID:        id,
		DamName:      name,
		DamElevation: damElevation,
		Mode:         string(res.Selection.Mode),
		Shortage:     res.Scan.Shortage.String(),
		Samples:      samples,
		Records:      res.Scan.Records,
		Skipped:      res.Scan.Skipped,
		Absolute:     res.Scan.Best,
		Selected:     res.Selection.Window,
		Found:        res.Selection.Found,
	}
}

// WriteRecords encodes dump to path.
func WriteRecords(path string, dump RecordDump) error {
	data, err := msgpack.Marshal(&dump)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadRecords decodes a dump written by WriteRecords.
func ReadRecords(path string) (RecordDump, error) {
	var dump RecordDump
	data, err := os.ReadFile(path)
	if err != nil {
		return dump, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := msgpack.Unmarshal(data, &dump); err != nil {
		return dump, fmt.Errorf("decoding %s: %w", path, err)
	}
	return dump, nil
}
