package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/stationmap"
)

// Mirror receives accepted readings for analytics storage. Implemented
// by the InfluxDB client; writes must be non-blocking.
type Mirror interface {
	WriteReading(source, stationID, parameter string, value float64, observedAt time.Time)
}

// Store owns all SQLite access for readings and stations.
type Store struct {
	db     *sql.DB
	caps   config.MaxRecordsConfig
	loc    *time.Location
	log    *logging.Logger
	mirror Mirror
}

// New creates a store. loc is the site timezone used when rendering
// display times on reads; storage itself is always UTC.
func New(db *sql.DB, caps config.MaxRecordsConfig, loc *time.Location, log *logging.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		db:   db,
		caps: caps,
		loc:  loc,
		log:  log.With("component", "store"),
	}
}

// SetMirror attaches an analytics mirror. Passing nil detaches it.
func (s *Store) SetMirror(m Mirror) {
	s.mirror = m
}

// SaveReadings persists a batch for one source and returns the number
// of rows written.
//
// Every save: upserts the stations registry, stamps each row with a
// single recorded_at instant (any RecordedAt on the input is ignored),
// then enforces the source's retention cap. Individual row failures are
// logged and skipped; the batch keeps going. An empty batch is a no-op
// and does not trigger retention.
func (s *Store) SaveReadings(ctx context.Context, src reading.Source, readings []reading.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	table := src.TableName()
	if table == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}

	now := time.Now().UTC()
	recordedAt := now.Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.upsertStations(ctx, tx, src, readings); err != nil {
		return 0, err
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (station_name, station_id, parameter_name, value, unit, observed_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table)
	if src == reading.SourceMQTT {
		insert = `
		INSERT INTO mqtt_readings (station_name, station_id, device_name, parameter_name, value, unit, observed_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	saved := 0
	var accepted []reading.Reading
	for _, r := range readings {
		var value any
		if r.Value != nil {
			value = *r.Value
		}

		args := []any{r.Station, r.StationID, r.Parameter, value, r.Unit, r.ObservedAt, recordedAt}
		if src == reading.SourceMQTT {
			args = []any{r.Station, r.StationID, r.Device, r.Parameter, value, r.Unit, r.ObservedAt, recordedAt}
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			s.log.Warn("skipping reading",
				"source", src, "station", r.Station, "parameter", r.Parameter, "error", err)
			continue
		}
		saved++
		accepted = append(accepted, r)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing save for %s: %w", table, err)
	}

	if deleted, err := s.enforceCap(ctx, table, src.RetentionCap(s.caps)); err != nil {
		s.log.Warn("retention enforcement failed", "table", table, "error", err)
	} else if deleted > 0 {
		s.log.Info("retention trimmed table", "table", table, "deleted", deleted)
	}

	if s.mirror != nil {
		for _, r := range accepted {
			if r.Value != nil {
				s.mirror.WriteReading(src.String(), r.StationID, r.Parameter, *r.Value, now)
			}
		}
		if sink, ok := s.mirror.(interface {
			WriteIngestStats(source string, saved, failed int)
		}); ok {
			sink.WriteIngestStats(src.String(), saved, len(readings)-saved)
		}
	}

	return saved, nil
}

// upsertStations refreshes the stations registry for every distinct
// station in the batch. Coordinates come from the static tables; a
// station without coordinates is still registered.
func (s *Store) upsertStations(ctx context.Context, tx *sql.Tx, src reading.Source, readings []reading.Reading) error {
	const upsert = `
		INSERT INTO stations (station_id, station_name, station_type, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			station_name = excluded.station_name,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

	seen := make(map[string]bool)
	for _, r := range readings {
		if r.StationID == "" || seen[r.StationID] {
			continue
		}
		seen[r.StationID] = true

		var lat, lng any
		coord, ok := stationmap.StationCoordinates(src, r.Station)
		if !ok && r.Device != "" {
			coord, ok = stationmap.DeviceCoordinates(r.Device)
		}
		if ok {
			lat, lng = coord.Lat, coord.Lng
		}

		if _, err := tx.ExecContext(ctx, upsert,
			r.StationID, r.Station, strings.ToUpper(src.String()), lat, lng); err != nil {
			return fmt.Errorf("upserting station %s: %w", r.StationID, err)
		}
	}
	return nil
}

// enforceCap deletes exactly the rows beyond the cap, oldest first.
func (s *Store) enforceCap(ctx context.Context, table string, cap int) (int64, error) {
	if cap <= 0 {
		return 0, nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	if count <= cap {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id IN (
			SELECT id FROM %s ORDER BY recorded_at ASC, id ASC LIMIT ?
		)`, table, table), count-cap)
	if err != nil {
		return 0, fmt.Errorf("deleting excess rows: %w", err)
	}
	return res.RowsAffected()
}

// PurgeOlderThan deletes rows older than maxAge from every source table
// and returns the total rows removed. Runs on the daily sweep.
func (s *Store) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)

	var total int64
	for _, src := range reading.Sources() {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE recorded_at < ?`, src.TableName()), cutoff)
		if err != nil {
			return total, fmt.Errorf("purging %s: %w", src.TableName(), err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if total > 0 {
		s.log.Info("purged aged readings", "deleted", total, "cutoff", cutoff)
	}
	return total, nil
}
