package mqttsource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"nan", `{"value": nan}`, `{"value":0}`},
		{"negative nan", `{"value": -nan}`, `{"value":0}`},
		{"inf", `{"value": inf}`, `{"value":0}`},
		{"negative inf", `{"value": -inf}`, `{"value":0}`},
		{"uppercase NaN", `{"value": NaN}`, `{"value":0}`},
		{"bare minus before comma", `{"a": -, "b": 1}`, `{"a":0, "b": 1}`},
		{"bare minus before brace", `{"a": -}`, `{"a":0}`},
		{"bare minus at end", `{"a": -`, `{"a":0`},
		{"bare dot", `{"a": .}`, `{"a":0}`},
		{"minus dot", `{"a": -.}`, `{"a":0}`},
		{"in array", `{"d":[{"v": nan},{"v": -}]}`, `{"d":[{"v":0},{"v":0}]}`},
		{"valid negative untouched", `{"a": -1.5}`, `{"a": -1.5}`},
		{"valid decimal untouched", `{"a": 0.5}`, `{"a": 0.5}`},
		{"nan inside string untouched", `{"a": "nanometer"}`, `{"a": "nanometer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			if got != tt.want {
				t.Errorf("repairJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// Repaired output must decode unless the input was truncated.
			if tt.name != "bare minus at end" {
				var v any
				if err := json.Unmarshal([]byte(got), &v); err != nil {
					t.Errorf("repaired payload does not decode: %v", err)
				}
			}
		})
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		wantDisplay string
		wantNum     float64
		numNil      bool
		wantOK      bool
	}{
		{"number", 1.42, "1.42", 1.42, false, true},
		{"empty string", "", "0", 0, false, true},
		{"minus string", " - ", "0", 0, false, true},
		{"dot string", ".", "0", 0, false, true},
		{"numeric string", "23.5", "23.5", 23.5, false, true},
		{"text string", "OK", "OK", 0, true, true},
		{"nil dropped", nil, "", 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, num, ok := coerceValue(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("coerceValue(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if display != tt.wantDisplay {
				t.Errorf("display = %q, want %q", display, tt.wantDisplay)
			}
			if tt.numNil {
				if num != nil {
					t.Errorf("num = %v, want nil", *num)
				}
			} else if num == nil || *num != tt.wantNum {
				t.Errorf("num = %v, want %v", num, tt.wantNum)
			}
		})
	}
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mqtt.json")
	return NewAggregator(path, 10*time.Minute, time.UTC, logging.Default())
}

func gatewayMessage(ts string, items string) []byte {
	return []byte(`{"ts":"` + ts + `","d":[` + items + `]}`)
}

func TestHandleMessage(t *testing.T) {
	agg := newTestAggregator(t)

	err := agg.HandleMessage("telemetry/data", gatewayMessage("2026-09-01T03:00:00Z",
		`{"tag":"G30A_MUCNUOC","value":1.42},{"tag":"G30A_NHIETDO","value":"28.5"}`))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	stations := agg.Latest()
	if len(stations) != 1 {
		t.Fatalf("Latest() = %d stations, want 1", len(stations))
	}

	st := stations[0]
	if st.DeviceName != "G30A" || st.Station == "" {
		t.Errorf("station = %+v", st)
	}
	if st.UpdateTime != "2026-09-01T03:00:00Z" {
		t.Errorf("UpdateTime = %q", st.UpdateTime)
	}
	if st.Lat == 0 || st.Lng == 0 {
		t.Errorf("coordinates = (%v, %v), want mapped", st.Lat, st.Lng)
	}
	if len(st.Data) != 2 {
		t.Fatalf("params = %d, want 2", len(st.Data))
	}

	// Sorted by raw type: MUCNUOC then NHIETDO.
	if st.Data[0].RawType != "MUCNUOC" || st.Data[0].Num == nil || *st.Data[0].Num != 1.42 {
		t.Errorf("first param = %+v", st.Data[0])
	}
	if st.Data[0].Name != "Mực Nước" || st.Data[0].Unit != "m" {
		t.Errorf("first param mapping = %+v", st.Data[0])
	}
	if st.Data[1].Num == nil || *st.Data[1].Num != 28.5 {
		t.Errorf("string value not coerced: %+v", st.Data[1])
	}
}

func TestHandleMessageRepairsPayload(t *testing.T) {
	agg := newTestAggregator(t)

	raw := []byte(`{"ts":"2026-09-01T03:00:00Z","d":[{"tag":"G30A_MUCNUOC","value": nan},{"tag":"G30A_LUULUONG","value": -}]}`)
	if err := agg.HandleMessage("telemetry/data", raw); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	stations := agg.Latest()
	if len(stations) != 1 || len(stations[0].Data) != 2 {
		t.Fatalf("stations = %+v", stations)
	}
	for _, p := range stations[0].Data {
		if p.Num == nil || *p.Num != 0 {
			t.Errorf("repaired param %s = %v, want 0", p.RawType, p.Num)
		}
	}
}

func TestHandleMessageLatestValueWins(t *testing.T) {
	agg := newTestAggregator(t)

	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z", `{"tag":"G30A_MUCNUOC","value":1.0}`))
	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:05:00Z", `{"tag":"G30A_MUCNUOC","value":2.0}`))

	stations := agg.Latest()
	if len(stations) != 1 || len(stations[0].Data) != 1 {
		t.Fatalf("stations = %+v", stations)
	}
	if *stations[0].Data[0].Num != 2.0 {
		t.Errorf("value = %v, want latest (2.0)", *stations[0].Data[0].Num)
	}
	if stations[0].UpdateTime != "2026-09-01T03:05:00Z" {
		t.Errorf("UpdateTime = %q, want latest", stations[0].UpdateTime)
	}
}

func TestHandleMessageDropsUnknownDevice(t *testing.T) {
	agg := newTestAggregator(t)

	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z",
		`{"tag":"ZZ99_MUCNUOC","value":1.0},{"tag":"G30A_MUCNUOC","value":1.5}`))

	stations := agg.Latest()
	if len(stations) != 1 {
		t.Fatalf("Latest() = %d stations, want 1 (unknown device dropped)", len(stations))
	}
	if stations[0].DeviceName != "G30A" {
		t.Errorf("surviving device = %q", stations[0].DeviceName)
	}
}

func TestHandleMessageTwoSegmentDevice(t *testing.T) {
	agg := newTestAggregator(t)

	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z", `{"tag":"GS1_NM2_LUULUONG","value":12.5}`))

	stations := agg.Latest()
	if len(stations) != 1 {
		t.Fatalf("Latest() = %d stations, want 1", len(stations))
	}
	if stations[0].DeviceName != "GS1_NM2" {
		t.Errorf("device = %q, want GS1_NM2", stations[0].DeviceName)
	}
	if stations[0].Data[0].RawType != "LUULUONG" {
		t.Errorf("param type = %q, want LUULUONG", stations[0].Data[0].RawType)
	}
}

func TestHandleMessageMalformedSurvives(t *testing.T) {
	agg := newTestAggregator(t)

	malformed := [][]byte{
		[]byte("not json at all"),
		[]byte("telemetry/data"),
		[]byte("{\"d\": totally broken"),
		[]byte(""),
		[]byte(`{"ts":"x","d":"not an array"}`),
		[]byte(`{"d":[{"value":1.0}]}`), // missing tag
		[]byte(`{"d":[{"tag":"G30A_MUCNUOC"}]}`), // missing value
	}
	for _, m := range malformed {
		if err := agg.HandleMessage("telemetry/data", m); err != nil {
			t.Errorf("HandleMessage(%q) error = %v, want nil", m, err)
		}
	}
	if got := agg.Latest(); len(got) != 0 {
		t.Errorf("Latest() = %+v, want empty after malformed input", got)
	}

	// A good message after garbage still lands.
	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z", `{"tag":"G30A_MUCNUOC","value":1.0}`))
	if got := agg.Latest(); len(got) != 1 {
		t.Errorf("Latest() = %d stations after recovery, want 1", len(got))
	}
}

func TestLatestReadsThroughSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqtt.json")

	// First aggregator populates the artifact, then "crashes".
	first := NewAggregator(path, 10*time.Minute, time.UTC, logging.Default())
	first.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z", `{"tag":"G30A_MUCNUOC","value":1.42}`))

	// A fresh process with an empty in-memory cache reads the artifact.
	second := NewAggregator(path, 10*time.Minute, time.UTC, logging.Default())
	stations := second.Latest()
	if len(stations) != 1 {
		t.Fatalf("Latest() after restart = %d stations, want 1 from snapshot", len(stations))
	}
	if stations[0].DeviceName != "G30A" {
		t.Errorf("snapshot station = %+v", stations[0])
	}
}

func TestLatestIgnoresStaleSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqtt.json")

	first := NewAggregator(path, 10*time.Minute, time.UTC, logging.Default())
	first.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z", `{"tag":"G30A_MUCNUOC","value":1.42}`))

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	second := NewAggregator(path, 10*time.Minute, time.UTC, logging.Default())
	if got := second.Latest(); len(got) != 0 {
		t.Errorf("Latest() = %d stations, want 0 (stale snapshot ignored)", len(got))
	}
}

func TestReadings(t *testing.T) {
	agg := newTestAggregator(t)
	agg.HandleMessage("t", gatewayMessage("2026-09-01T03:00:00Z",
		`{"tag":"G30A_MUCNUOC","value":1.42},{"tag":"G30A_NHIETDO","value":28.5}`))

	rs := agg.Readings()
	if len(rs) != 2 {
		t.Fatalf("Readings() = %d, want 2", len(rs))
	}
	for _, r := range rs {
		if r.StationID != "mqtt_giếng_khoan_g30a" {
			t.Errorf("StationID = %q", r.StationID)
		}
		if r.Value == nil {
			t.Error("Value = nil, want coerced number")
		}
		if r.ObservedAt != "2026-09-01T03:00:00Z" {
			t.Errorf("ObservedAt = %q", r.ObservedAt)
		}
		if !r.RecordedAt.IsZero() {
			t.Error("RecordedAt must be zero until the store assigns it")
		}
	}
}
