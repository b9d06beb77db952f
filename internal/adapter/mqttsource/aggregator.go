package mqttsource

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/snapshot"
	"github.com/hydrolink/hydrolink-core/internal/stationmap"
)

// Param is the latest value of one device parameter.
type Param struct {
	Name      string   `json:"name"`
	Time      string   `json:"time"`
	Value     string   `json:"value"`
	Num       *float64 `json:"num,omitempty"`
	Unit      string   `json:"unit"`
	RawType   string   `json:"rawType"`
	Timestamp string   `json:"timestamp"`
}

// Station is one gateway device with its latest parameter values.
type Station struct {
	Station    string  `json:"station"`
	DeviceName string  `json:"deviceName"`
	UpdateTime string  `json:"updateTime"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
	Data       []Param `json:"data"`
}

// artifact is the snapshot file layout.
type artifact struct {
	Timestamp     string    `json:"timestamp"`
	TotalStations int       `json:"totalStations"`
	Stations      []Station `json:"stations"`
}

// payloadItem is one tagged value in a gateway batch.
type payloadItem struct {
	Tag   string `json:"tag"`
	Value any    `json:"value"`
}

type payload struct {
	TS any           `json:"ts"`
	D  []payloadItem `json:"d"`
}

// deviceState accumulates the latest value per parameter for one device.
type deviceState struct {
	lastUpdate string
	params     map[string]Param
}

// Aggregator consumes gateway messages and maintains the latest station
// list. Safe for concurrent use: message handling runs on the MQTT
// client's goroutines while the flush loop reads.
type Aggregator struct {
	log          *logging.Logger
	snapshotPath string
	cacheTTL     time.Duration
	loc          *time.Location

	mu        sync.RWMutex
	devices   map[string]*deviceState
	stations  []Station
	updatedAt time.Time
}

// NewAggregator builds an aggregator. snapshotPath may be empty to
// disable the artifact; loc controls display time formatting.
func NewAggregator(snapshotPath string, cacheTTL time.Duration, loc *time.Location, log *logging.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		log:          log.With("component", "mqtt-source"),
		snapshotPath: snapshotPath,
		cacheTTL:     cacheTTL,
		loc:          loc,
		devices:      make(map[string]*deviceState),
	}
}

// HandleMessage ingests one gateway message. Malformed payloads are
// logged and dropped; the error return is always nil so the subscription
// survives bad input.
func (a *Aggregator) HandleMessage(topic string, raw []byte) error {
	msg := strings.TrimSpace(string(raw))

	// The gateways sometimes echo topic names and plain-text status
	// lines onto the data topic; only JSON passes.
	if msg == "" || msg == topic || strings.HasPrefix(msg, "telemetry") {
		return nil
	}
	if !strings.HasPrefix(msg, "{") && !strings.HasPrefix(msg, "[") {
		return nil
	}

	var batch payload
	if err := json.Unmarshal([]byte(repairJSON(msg)), &batch); err != nil {
		a.log.Warn("dropping malformed payload", "topic", topic, "error", err, "payload", truncate(msg, 300))
		return nil
	}
	if len(batch.D) == 0 {
		return nil
	}

	ts := timestampString(batch.TS)
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	accepted := 0
	for _, item := range batch.D {
		if item.Tag == "" {
			continue
		}
		display, num, ok := coerceValue(item.Value)
		if !ok {
			continue
		}

		deviceCode, paramType, ok := stationmap.SplitTag(item.Tag)
		if !ok {
			a.log.Warn("dropping unparseable tag", "tag", item.Tag)
			continue
		}

		dev := a.devices[deviceCode]
		if dev == nil {
			dev = &deviceState{params: make(map[string]Param)}
			a.devices[deviceCode] = dev
		}
		dev.params[paramType] = Param{
			Name:      stationmap.ParamName(paramType),
			Time:      a.displayTime(ts),
			Value:     display,
			Num:       num,
			Unit:      stationmap.ParamUnit(paramType),
			RawType:   paramType,
			Timestamp: ts,
		}
		dev.lastUpdate = ts
		accepted++
	}

	if accepted > 0 {
		a.rebuildStations()
	}
	return nil
}

// rebuildStations replaces the published station list from the device
// state. Caller holds a.mu.
func (a *Aggregator) rebuildStations() {
	codes := make([]string, 0, len(a.devices))
	for code := range a.devices {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	stations := make([]Station, 0, len(codes))
	for _, code := range codes {
		name, known := stationmap.DeviceStation(code)
		if !known {
			a.log.Warn("dropping unconfigured device", "device", code)
			continue
		}

		dev := a.devices[code]
		if len(dev.params) == 0 {
			continue
		}

		st := Station{
			Station:    name,
			DeviceName: code,
			UpdateTime: dev.lastUpdate,
		}
		if coord, ok := stationmap.DeviceCoordinates(code); ok {
			st.Lat = coord.Lat
			st.Lng = coord.Lng
		} else {
			a.log.Warn("missing coordinates for device", "device", code, "station", name)
		}

		types := make([]string, 0, len(dev.params))
		for t := range dev.params {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			st.Data = append(st.Data, dev.params[t])
		}

		stations = append(stations, st)
	}

	a.stations = stations
	a.updatedAt = time.Now()

	if a.snapshotPath != "" {
		art := artifact{
			Timestamp:     a.updatedAt.UTC().Format(time.RFC3339),
			TotalStations: len(stations),
			Stations:      stations,
		}
		if err := snapshot.Save(a.snapshotPath, art); err != nil {
			a.log.Warn("snapshot write failed", "error", err)
		}
	}
}

// Latest returns the current station list without blocking ingestion.
//
// When the in-process cache is empty (fresh restart) it reads through to
// the snapshot artifact, honoring the cache TTL.
func (a *Aggregator) Latest() []Station {
	a.mu.RLock()
	stations := a.stations
	updatedAt := a.updatedAt
	a.mu.RUnlock()

	fresh := a.cacheTTL <= 0 || time.Since(updatedAt) < a.cacheTTL
	if len(stations) > 0 && fresh {
		out := make([]Station, len(stations))
		copy(out, stations)
		return out
	}

	if a.snapshotPath != "" {
		var art artifact
		if err := snapshot.Load(a.snapshotPath, a.cacheTTL, &art); err == nil && len(art.Stations) > 0 {
			return art.Stations
		}
	}

	out := make([]Station, len(stations))
	copy(out, stations)
	return out
}

// Readings converts the current station list into normalized readings
// for the flush loop.
func (a *Aggregator) Readings() []reading.Reading {
	stations := a.Latest()

	var out []reading.Reading
	for _, st := range stations {
		id := reading.SlugID(reading.SourceMQTT, st.Station)
		for _, p := range st.Data {
			out = append(out, reading.Reading{
				Station:    st.Station,
				StationID:  id,
				Parameter:  p.Name,
				Value:      p.Num,
				Unit:       p.Unit,
				ObservedAt: p.Timestamp,
				Device:     st.DeviceName,
			})
		}
	}
	return out
}

// displayTime renders a payload timestamp in the site timezone.
func (a *Aggregator) displayTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.In(a.loc).Format("15:04:05 2/1/2006")
}

// timestampString normalizes the payload ts field, which the gateways
// send as either an RFC3339 string or epoch seconds.
func timestampString(ts any) string {
	switch v := ts.(type) {
	case string:
		return v
	case float64:
		if v <= 0 {
			return ""
		}
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
