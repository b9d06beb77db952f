// Package influxdb provides InfluxDB connectivity for Hydrolink Core.
//
// It wraps the official influxdb-client-go v2 library with Hydrolink-specific
// patterns for connection management, reading mirroring, and health monitoring.
//
// # Purpose
//
// SQLite is the system of record; InfluxDB is an optional analytics mirror.
// This package handles time-series storage for:
//   - Normalized station readings from all ingest sources
//   - Per-cycle ingest throughput and failure counts
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hydrolink",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteReading("tva", "tva_ham_kiem", "water_level", 1.42, observedAt)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead for high-frequency data.
package influxdb
