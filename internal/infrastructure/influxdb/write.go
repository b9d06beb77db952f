package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading mirrors a single station measurement to InfluxDB.
//
// This is the primary method for recording ingested telemetry. The write
// is non-blocking; data is batched and sent asynchronously. Readings with
// no numeric value are not mirrored (SQLite remains the system of record
// for raw text values).
//
// Parameters:
//   - source: Origin of the reading ("tva", "mqtt", "scada")
//   - stationID: Normalized station identifier (e.g., "tva_ham_kiem")
//   - parameter: The measured quantity (e.g., "water_level", "rainfall")
//   - value: The numeric value to record
//   - observedAt: When the measurement was taken
//
// Example:
//
//	client.WriteReading("mqtt", "mqtt_gs1_quoc_tuan", "water_level", 1.42, time.Now())
func (c *Client) WriteReading(source, stationID, parameter string, value float64, observedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"readings",
		map[string]string{
			"source":     source,
			"station_id": stationID,
			"parameter":  parameter,
		},
		map[string]interface{}{
			"value": value,
		},
		observedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WriteIngestStats records a per-cycle ingest summary for a source.
//
// Used to track pipeline throughput and failure rates over time.
//
// Parameters:
//   - source: Origin of the cycle ("tva", "mqtt", "scada")
//   - saved: Number of readings persisted this cycle
//   - failed: Number of readings that could not be persisted
func (c *Client) WriteIngestStats(source string, saved, failed int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"ingest",
		map[string]string{
			"source": source,
		},
		map[string]interface{}{
			"saved":  saved,
			"failed": failed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
