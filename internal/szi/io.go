package szi

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadSamples parses whitespace separated (elevation, area) rows. Blank
// lines and lines starting with '#' are ignored.
func ReadSamples(r io.Reader) (Series, error) {
	var series Series
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected elevation and area, got %q", line, text)
		}
		z, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid elevation: %w", line, err)
		}
		s, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid area: %w", line, err)
		}
		series = append(series, Sample{Z: z, S: s})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	return series, nil
}

// LoadSamples reads an S(Zi) file.
func LoadSamples(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	series, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// WriteTable writes the series as two space separated columns.
func WriteTable(w io.Writer, series Series) error {
	bw := bufio.NewWriter(w)
	for _, p := range series {
		if _, err := fmt.Fprintf(bw, "%.18e %.18e\n", p.Z, p.S); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveTable writes the series to path.
func SaveTable(path string, series Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteTable(f, series); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
