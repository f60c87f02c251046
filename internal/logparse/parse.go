// Package logparse extracts per-generation statistics from a log file.
//
// Parsing is best-effort because the log format carries no version: a line
// that does not look like a stats line, or whose numbers do not parse, is
// skipped and parsing continues. Points keep file order; gaps
// and repeated generations are returned as they appear.
package logparse

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encodings reported by Decode.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

const (
	statsMarker = "LOG,"
	bracketSep  = "] "
	minFields   = 5
	fieldGen    = 2
	fieldAlive  = 3
	fieldDead   = 4
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Point is one generation's statistics.
type Point struct {
	Generation int `json:"generation"`
	Alive      int `json:"alive"`
	Dead       int `json:"dead"`
}

// Series is an ordered list of points, in file order.
type Series []Point

// Generations returns the generation numbers as floats, for plotting.
func (s Series) Generations() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.Generation)
	}
	return out
}

// AliveCounts returns the alive counts as floats.
func (s Series) AliveCounts() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.Alive)
	}
	return out
}

// DeadCounts returns the dead counts as floats.
func (s Series) DeadCounts() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.Dead)
	}
	return out
}

// Stats summarizes one parse.
type Stats struct {
	Encoding   string `json:"encoding"`
	Lines      int    `json:"lines"`
	Candidates int    `json:"candidates"`
	Parsed     int    `json:"parsed"`
	Skipped    int    `json:"skipped"`
}

// Decode converts raw file bytes to text: UTF-8 when valid, otherwise Latin-1,
// which accepts every byte. Device output sometimes carries locale-specific bytes.
func Decode(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(text), EncodingLatin1, nil
}

// ParseFile reads and parses a log file.
func ParseFile(path string) (Series, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read log file: %w", err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return nil, Stats{}, err
	}
	series, stats := Parse(text)
	stats.Encoding = enc
	return series, stats, nil
}

// Parse extracts points from log text. Malformed lines are skipped silently.
func Parse(text string) (Series, Stats) {
	var stats Stats
	series := Series{}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		stats.Lines++
		if !strings.Contains(line, statsMarker) {
			continue
		}
		stats.Candidates++
		p, ok := ParseLine(line)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Parsed++
		series = append(series, p)
	}
	return series, stats
}

// ParseLine parses one timestamped stats line:
//
//	[2024-01-01 10:00:01] LOG,x,y,GEN:0,ALIVE:10,DEAD:1526
//
// The line must contain exactly one "] " separator. The payload after it is
// read from the "LOG," marker on: the remainder needs at least five comma
// fields, and fields 2..4 hold "<label>:<int>" for generation, alive and dead.
// Fields 0 and 1 are opaque.
func ParseLine(line string) (Point, bool) {
	parts := strings.Split(line, bracketSep)
	if len(parts) != 2 {
		return Point{}, false
	}
	i := strings.Index(parts[1], statsMarker)
	if i < 0 {
		return Point{}, false
	}
	fields := strings.Split(parts[1][i+len(statsMarker):], ",")
	if len(fields) < minFields {
		return Point{}, false
	}

	gen, ok := fieldValue(fields[fieldGen])
	if !ok {
		return Point{}, false
	}
	alive, ok := fieldValue(fields[fieldAlive])
	if !ok {
		return Point{}, false
	}
	dead, ok := fieldValue(fields[fieldDead])
	if !ok {
		return Point{}, false
	}
	return Point{Generation: gen, Alive: alive, Dead: dead}, true
}

// fieldValue parses the integer between the first and second colon of "LABEL:123".
func fieldValue(field string) (int, bool) {
	parts := strings.Split(field, ":")
	if len(parts) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}
