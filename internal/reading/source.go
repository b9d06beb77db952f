package reading

import (
	"fmt"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
)

// Source identifies the origin of a reading. Each source owns its own
// table and retention cap; behavior that varies per source hangs off this
// type rather than string comparisons scattered through the pipeline.
type Source string

// Known reading sources.
const (
	SourceTVA   Source = "tva"
	SourceMQTT  Source = "mqtt"
	SourceSCADA Source = "scada"
)

// Sources lists all known sources in a stable order.
func Sources() []Source {
	return []Source{SourceTVA, SourceMQTT, SourceSCADA}
}

// ParseSource converts a string to a Source.
//
// Returns an error for unknown values so callers can reject bad filter
// input early.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceTVA, SourceMQTT, SourceSCADA:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown reading source %q", s)
}

// String returns the source identifier as stored in station IDs and logs.
func (s Source) String() string {
	return string(s)
}

// TableName returns the SQLite table holding this source's readings.
func (s Source) TableName() string {
	switch s {
	case SourceTVA:
		return "tva_readings"
	case SourceMQTT:
		return "mqtt_readings"
	case SourceSCADA:
		return "scada_readings"
	}
	return ""
}

// RetentionCap returns the maximum row count for this source's table.
//
// Zero means no cap. The store deletes the oldest rows beyond the cap
// after each save.
func (s Source) RetentionCap(caps config.MaxRecordsConfig) int {
	switch s {
	case SourceTVA:
		return caps.TVA
	case SourceMQTT:
		return caps.MQTT
	case SourceSCADA:
		return caps.SCADA
	}
	return 0
}
