// Package stationmap holds the static station topology: SCADA channel
// assignments, MQTT device tag conventions, canonical parameter names and
// units, and station coordinates.
//
// The tables mirror the upstream Rapid SCADA configuration and the field
// gateway naming scheme; they change only when stations are commissioned
// or decommissioned, so they live in code rather than in config.
package stationmap
