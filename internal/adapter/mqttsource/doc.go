// Package mqttsource turns the raw gateway MQTT feed into station data.
//
// Field gateways publish JSON batches of tagged values. The firmware is
// buggy in known ways — bare NaN/Inf tokens, dangling minus signs — so
// payloads go through a lexical repair pass before decoding. An
// Aggregator keeps the latest value per device parameter and rebuilds
// the full station list on every message; a periodic flush persists the
// aggregate through the store.
package mqttsource
