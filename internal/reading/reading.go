package reading

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reading is one normalized measurement ready for persistence.
//
// ObservedAt carries the source's own timestamp text verbatim (the portal
// and gateways disagree on formats, so it is stored as-is for display).
// RecordedAt is the ingest instant and is always assigned by the store at
// write time; adapters must leave it zero.
type Reading struct {
	Station    string
	StationID  string
	Parameter  string
	Value      *float64
	Unit       string
	ObservedAt string
	RecordedAt time.Time

	// Device is the gateway device code for MQTT readings, empty for
	// other sources.
	Device string
}

// ParamValue is one named measurement inside a station block, still in
// source text form.
type ParamValue struct {
	Name  string   `json:"name"`
	Value string   `json:"value"`
	Unit  string   `json:"unit,omitempty"`
	Num   *float64 `json:"num,omitempty"`
}

// StationSnapshot is the per-station shape the read layer and snapshot
// artifacts expose: the latest value of every parameter observed at a
// station, tagged with the source and the source's own timestamp text.
type StationSnapshot struct {
	Station   string       `json:"station"`
	StationID string       `json:"station_id"`
	Source    Source       `json:"source"`
	Timestamp string       `json:"timestamp"`
	Params    []ParamValue `json:"params"`
}

// StationInfo is a row of the stations registry table.
type StationInfo struct {
	StationID string
	Name      string
	Source    Source
	Lat       *float64
	Lng       *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// numericPrefix matches a leading signed decimal in a trimmed value,
// so "1.42 m" yields 1.42 the way the upstream portals present it.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseNumeric extracts the numeric part of a source value string.
//
// Thousands separators are stripped ("1,234.5" → 1234.5) and trailing
// unit text is ignored. Returns nil when no leading number is present;
// the caller stores NULL and keeps the raw text elsewhere.
func ParseNumeric(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	m := numericPrefix.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

var slugSpaces = regexp.MustCompile(`\s+`)

// SlugID derives the stable station identifier from a source and a
// display name: lowercase, whitespace runs collapsed to underscores,
// prefixed with the source ("tva", "Hàm Kiệt" → "tva_hàm_kiệt").
func SlugID(source Source, stationName string) string {
	name := strings.ToLower(strings.TrimSpace(stationName))
	name = slugSpaces.ReplaceAllString(name, "_")
	return source.String() + "_" + name
}
