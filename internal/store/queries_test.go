package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
	"github.com/hydrolink/hydrolink-core/internal/reading"
)

// seedReading inserts one row directly, bypassing SaveReadings, so
// tests control recorded_at.
func seedReading(t *testing.T, s *Store, table, station, stationID, param string, value float64, recordedAt time.Time) {
	t.Helper()
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (station_name, station_id, parameter_name, value, unit, recorded_at)
		VALUES (?, ?, ?, ?, 'm', ?)`, table),
		station, stationID, param, value, recordedAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seeding %s: %v", table, err)
	}
}

func TestLatestByStation(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	now := time.Now().UTC()

	// Two generations for one station; only the newer must surface.
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.0, now.Add(-2*time.Hour))
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.5, now.Add(-time.Hour))
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Lưu lượng", 230, now.Add(-time.Hour))
	seedReading(t, s, "scada_readings", "Giếng 4 Nhà máy 2", "scada_giếng_4_nhà_máy_2", "Mức Nước", 8.2, now)

	snaps, err := s.LatestByStation(context.Background())
	if err != nil {
		t.Fatalf("LatestByStation() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("stations = %d, want 2", len(snaps))
	}

	// Sorted by station name.
	if snaps[0].Station != "Giếng 4 Nhà máy 2" || snaps[1].Station != "Hàm Kiệt" {
		t.Errorf("station order = [%q, %q]", snaps[0].Station, snaps[1].Station)
	}

	hamKiet := snaps[1]
	if hamKiet.Source != reading.SourceTVA {
		t.Errorf("source = %v, want tva", hamKiet.Source)
	}
	if len(hamKiet.Params) != 2 {
		t.Fatalf("params = %d, want 2", len(hamKiet.Params))
	}
	for _, p := range hamKiet.Params {
		if p.Name == "Mực nước" {
			if p.Num == nil || *p.Num != 1.5 {
				t.Errorf("Mực nước = %v, want 1.5 (newest generation)", p.Num)
			}
		}
	}
}

func TestStationStatus(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	now := time.Now().UTC()

	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.5, now.Add(-5*time.Minute))
	seedReading(t, s, "scada_readings", "Trạm bơm 1", "scada_trạm_bơm_1", "Áp Lực", 2.1, now.Add(-45*time.Minute))

	statuses, err := s.StationStatus(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("StationStatus() error = %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}

	byName := make(map[string]Status)
	for _, st := range statuses {
		byName[st.Station] = st
	}

	if st := byName["Hàm Kiệt"]; !st.Online {
		t.Errorf("Hàm Kiệt online = false, want true (5m < 30m timeout)")
	}
	if st := byName["Trạm bơm 1"]; st.Online {
		t.Errorf("Trạm bơm 1 online = true, want false (45m > 30m timeout)")
	}
	if st := byName["Trạm bơm 1"]; st.MinutesSince < 44 || st.MinutesSince > 46 {
		t.Errorf("MinutesSince = %v, want ~45", st.MinutesSince)
	}
}

func TestStationStatusMergesSources(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	now := time.Now().UTC()

	// Same station name in two sources; only the fresher row counts.
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.5, now.Add(-2*time.Hour))
	seedReading(t, s, "scada_readings", "Hàm Kiệt", "scada_hàm_kiệt", "Mực nước", 1.6, now.Add(-time.Minute))

	statuses, err := s.StationStatus(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("StationStatus() error = %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if !statuses[0].Online {
		t.Error("merged station offline, want online from the fresher source")
	}
	if statuses[0].Source != reading.SourceSCADA {
		t.Errorf("source = %v, want scada", statuses[0].Source)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// Three rows inside one 60-minute bucket: only the newest survives.
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.0, base.Add(5*time.Minute))
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.1, base.Add(25*time.Minute))
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.2, base.Add(55*time.Minute))
	// Next bucket.
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 2.0, base.Add(75*time.Minute))

	points, err := s.Stats(context.Background(), Filters{
		Source:          reading.SourceTVA,
		IntervalMinutes: 60,
	})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 (one per bucket)", len(points))
	}

	// Newest first.
	if points[0].Value == nil || *points[0].Value != 2.0 {
		t.Errorf("points[0].Value = %v, want 2.0", points[0].Value)
	}
	if points[1].Value == nil || *points[1].Value != 1.2 {
		t.Errorf("points[1].Value = %v, want 1.2 (newest within bucket)", points[1].Value)
	}
}

func TestStatsFilters(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.0, base)
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Lưu lượng", 230, base)
	seedReading(t, s, "tva_readings", "Suối Đá", "tva_suối_đá", "Mực nước", 3.0, base)
	seedReading(t, s, "scada_readings", "Trạm bơm 1", "scada_trạm_bơm_1", "Mực nước", 2.0, base)

	t.Run("by station", func(t *testing.T) {
		points, err := s.Stats(context.Background(), Filters{
			StationIDs: []string{"tva_hàm_kiệt"},
		})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("points = %d, want 2", len(points))
		}
		for _, p := range points {
			if p.StationID != "tva_hàm_kiệt" {
				t.Errorf("stationID = %q, want tva_hàm_kiệt", p.StationID)
			}
		}
	})

	t.Run("by parameter", func(t *testing.T) {
		points, err := s.Stats(context.Background(), Filters{Parameter: "Mực nước"})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(points) != 3 {
			t.Fatalf("points = %d, want 3", len(points))
		}
	})

	t.Run("by source", func(t *testing.T) {
		points, err := s.Stats(context.Background(), Filters{Source: reading.SourceSCADA})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(points) != 1 || points[0].Source != reading.SourceSCADA {
			t.Fatalf("points = %+v, want single scada point", points)
		}
	})

	t.Run("by time range", func(t *testing.T) {
		points, err := s.Stats(context.Background(), Filters{
			Start: base.Add(time.Hour),
			End:   base.Add(2 * time.Hour),
		})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(points) != 0 {
			t.Fatalf("points = %d, want 0 outside seeded window", len(points))
		}
	})

	t.Run("limit", func(t *testing.T) {
		points, err := s.Stats(context.Background(), Filters{Limit: 2})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("points = %d, want 2", len(points))
		}
	})
}

func TestStations(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	ctx := context.Background()

	if _, err := s.SaveReadings(ctx, reading.SourceMQTT, []reading.Reading{{
		Station:   "Giếng Khoan G30A",
		StationID: "mqtt_giếng_khoan_g30a",
		Parameter: "Mực Nước",
		Value:     fptr(12.3),
		Device:    "G30A",
	}}); err != nil {
		t.Fatalf("SaveReadings() error = %v", err)
	}

	stations, err := s.Stations(ctx)
	if err != nil {
		t.Fatalf("Stations() error = %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("stations = %d, want 1", len(stations))
	}

	st := stations[0]
	if st.Name != "Giếng Khoan G30A" {
		t.Errorf("name = %q", st.Name)
	}
	if st.Source != reading.SourceMQTT {
		t.Errorf("source = %v, want mqtt", st.Source)
	}
	if st.Lat == nil || st.Lng == nil {
		t.Error("coordinates missing, want values from the static table")
	}
	if st.CreatedAt.IsZero() || st.UpdatedAt.IsZero() {
		t.Error("timestamps not parsed")
	}
}

func TestParameters(t *testing.T) {
	s := testStore(t, config.MaxRecordsConfig{})
	now := time.Now().UTC()

	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.0, now)
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Mực nước", 1.1, now)
	seedReading(t, s, "tva_readings", "Hàm Kiệt", "tva_hàm_kiệt", "Lưu lượng", 230, now)
	seedReading(t, s, "scada_readings", "Trạm bơm 1", "scada_trạm_bơm_1", "Áp Lực", 2.1, now)

	params, err := s.Parameters(context.Background())
	if err != nil {
		t.Fatalf("Parameters() error = %v", err)
	}
	if len(params) != 3 {
		t.Fatalf("parameters = %d, want 3 distinct", len(params))
	}

	// TVA parameters come first, sorted by name.
	if params[0].Name != "Lưu lượng" || params[0].Source != reading.SourceTVA {
		t.Errorf("params[0] = %+v", params[0])
	}
	if params[2].Name != "Áp Lực" || params[2].Source != reading.SourceSCADA {
		t.Errorf("params[2] = %+v", params[2])
	}
}
