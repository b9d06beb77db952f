package scada

import (
	"fmt"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/snapshot"
	"github.com/hydrolink/hydrolink-core/internal/stationmap"
)

// Channel is a channel value resolved against the station tables.
type Channel struct {
	ChannelNumber int     `json:"channelNumber"`
	StationID     string  `json:"station"`
	StationName   string  `json:"stationName"`
	Parameter     string  `json:"parameter"`
	ParameterName string  `json:"parameterName"`
	Value         float64 `json:"value"`
	DisplayText   string  `json:"displayText"`
	Unit          string  `json:"unit"`
	Status        string  `json:"status"`
	Color         string  `json:"color"`
	Group         string  `json:"group,omitempty"`
}

// GroupedStation is a station with all its channels, the shape the
// snapshot artifact and read layer expose.
type GroupedStation struct {
	StationID   string    `json:"station"`
	StationName string    `json:"stationName"`
	Group       string    `json:"group"`
	Parameters  []Channel `json:"parameters"`
}

// FormatChannel resolves a raw channel value against the station tables.
// Unmapped channels pass through tagged UNKNOWN so new server channels
// show up in the data instead of disappearing.
func FormatChannel(cv ChannelValue) Channel {
	status := "Offline"
	if cv.Stat == 1 {
		status = "Online"
	}
	color := cv.Color
	if color == "" {
		color = "Black"
	}

	ch := Channel{
		ChannelNumber: cv.CnlNum,
		Value:         cv.Val,
		DisplayText:   cv.TextWithUnit,
		Status:        status,
		Color:         color,
	}

	info, ok := stationmap.Channel(cv.CnlNum)
	if !ok {
		ch.StationID = "UNKNOWN"
		ch.StationName = fmt.Sprintf("Channel %d", cv.CnlNum)
		ch.Parameter = "UNKNOWN"
		ch.ParameterName = "Unknown Parameter"
		return ch
	}

	ch.StationID = info.StationID
	ch.StationName = info.StationName
	ch.Parameter = info.Parameter
	ch.ParameterName = info.ParameterName
	ch.Unit = info.Unit
	ch.Group = info.Group
	return ch
}

// GroupByStation folds formatted channels into per-station buckets,
// preserving input order within each station.
func GroupByStation(values []ChannelValue) map[string]GroupedStation {
	grouped := make(map[string]GroupedStation)

	for _, cv := range values {
		ch := FormatChannel(cv)
		st, ok := grouped[ch.StationID]
		if !ok {
			st = GroupedStation{
				StationID:   ch.StationID,
				StationName: ch.StationName,
				Group:       ch.Group,
			}
		}
		st.Parameters = append(st.Parameters, ch)
		grouped[ch.StationID] = st
	}

	return grouped
}

// Readings converts channel values into normalized readings. SCADA
// reports no observation time; the store's recorded_at stands in.
func Readings(values []ChannelValue) []reading.Reading {
	out := make([]reading.Reading, 0, len(values))
	for _, cv := range values {
		ch := FormatChannel(cv)
		val := ch.Value
		out = append(out, reading.Reading{
			Station:   ch.StationName,
			StationID: reading.SlugID(reading.SourceSCADA, ch.StationName),
			Parameter: ch.ParameterName,
			Value:     &val,
			Unit:      ch.Unit,
		})
	}
	return out
}

// artifact is the snapshot file layout: flat channels plus the grouped
// view, so consumers can pick either without re-deriving.
type artifact struct {
	Timestamp       string                    `json:"timestamp"`
	Source          string                    `json:"source"`
	TotalChannels   int                       `json:"totalChannels"`
	TotalStations   int                       `json:"totalStations"`
	Channels        []Channel                 `json:"channels"`
	StationsGrouped map[string]GroupedStation `json:"stationsGrouped"`
}

func (c *Client) writeSnapshot(values []ChannelValue) {
	if c.cfg.SnapshotPath == "" {
		return
	}

	channels := make([]Channel, 0, len(values))
	for _, cv := range values {
		channels = append(channels, FormatChannel(cv))
	}
	grouped := GroupByStation(values)

	art := artifact{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Source:          "SCADA_TVA",
		TotalChannels:   len(channels),
		TotalStations:   len(grouped),
		Channels:        channels,
		StationsGrouped: grouped,
	}
	if err := snapshot.Save(c.cfg.SnapshotPath, art); err != nil {
		c.log.Warn("snapshot write failed", "error", err)
	}
}
