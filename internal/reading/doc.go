// Package reading defines the core telemetry types shared across the
// ingest pipeline: normalized readings, their source of origin, and the
// station shapes the read layer exposes.
//
// Every adapter produces values in source-specific shapes; the store only
// accepts Reading. Conversion helpers here (ParseNumeric, SlugID) hold the
// normalization rules so adapters and store agree on them.
package reading
