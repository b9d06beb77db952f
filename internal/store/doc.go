// Package store persists normalized readings to SQLite and serves the
// read queries the dashboard layer consumes.
//
// Each source writes to its own table; the stations registry is upserted
// as a side effect of every save. recorded_at is assigned here at write
// time (UTC RFC3339) and is the authoritative timestamp for ordering,
// retention and liveness — source-claimed times are display data only.
//
// Retention runs inline after each save: row counts above the per-source
// cap delete exactly the excess oldest rows, and a daily sweep drops
// rows past the maximum age.
package store
