package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/reading"
)

const (
	defaultStatsInterval = 60 * time.Minute
	defaultStatsLimit    = 1000
	maxStatsLimit        = 10000
)

// Status reports the liveness of one station based on its newest row.
type Status struct {
	Station      string         `json:"station"`
	StationID    string         `json:"stationId"`
	Source       reading.Source `json:"source"`
	Online       bool           `json:"online"`
	LastUpdate   string         `json:"lastUpdate"`
	MinutesSince float64        `json:"minutesSince"`
}

// Filters narrows a Stats query. Zero values mean "no constraint";
// IntervalMinutes and Limit fall back to defaults when unset.
type Filters struct {
	StationIDs      []string
	Source          reading.Source
	Parameter       string
	Start           time.Time
	End             time.Time
	IntervalMinutes int
	Limit           int
}

// StatPoint is one downsampled reading from a Stats query.
type StatPoint struct {
	Station    string         `json:"station"`
	StationID  string         `json:"stationId"`
	Source     reading.Source `json:"source"`
	Parameter  string         `json:"parameter"`
	Value      *float64       `json:"value"`
	Unit       string         `json:"unit,omitempty"`
	ObservedAt string         `json:"observedAt,omitempty"`
	RecordedAt string         `json:"recordedAt"`
}

// LatestByStation returns the newest reading of every station/parameter
// pair, merged across all three sources and grouped by station name.
func (s *Store) LatestByStation(ctx context.Context) ([]reading.StationSnapshot, error) {
	byName := make(map[string]*reading.StationSnapshot)
	var order []string

	for _, src := range reading.Sources() {
		query := fmt.Sprintf(`
			SELECT station_name, station_id, parameter_name, value, unit, observed_at, recorded_at
			FROM (
				SELECT station_name, station_id, parameter_name, value, unit, observed_at, recorded_at,
					ROW_NUMBER() OVER (
						PARTITION BY station_id, parameter_name
						ORDER BY recorded_at DESC, id DESC
					) AS rn
				FROM %s
			)
			WHERE rn = 1
			ORDER BY station_name, parameter_name`, src.TableName())

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("querying latest %s readings: %w", src, err)
		}

		for rows.Next() {
			var (
				name, stationID, param, unit, observedAt, recordedAt string
				value                                                sql.NullFloat64
			)
			if err := rows.Scan(&name, &stationID, &param, &value, &unit, &observedAt, &recordedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning latest %s reading: %w", src, err)
			}

			snap, ok := byName[name]
			if !ok {
				snap = &reading.StationSnapshot{
					Station:   name,
					StationID: stationID,
					Source:    src,
					Timestamp: recordedAt,
				}
				byName[name] = snap
				order = append(order, name)
			}
			if recordedAt > snap.Timestamp {
				snap.Timestamp = recordedAt
			}

			pv := reading.ParamValue{Name: param, Unit: unit}
			if value.Valid {
				v := value.Float64
				pv.Num = &v
				pv.Value = formatValue(v)
			}
			snap.Params = append(snap.Params, pv)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating latest %s readings: %w", src, err)
		}
		rows.Close()
	}

	sort.Strings(order)
	out := make([]reading.StationSnapshot, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// StationStatus reports every known station as online or offline. A
// station is online when its newest reading is younger than timeout;
// stations present in more than one source keep the freshest row.
func (s *Store) StationStatus(ctx context.Context, timeout time.Duration) ([]Status, error) {
	now := time.Now().UTC()
	byName := make(map[string]Status)

	for _, src := range reading.Sources() {
		query := fmt.Sprintf(`
			SELECT station_name, station_id, MAX(recorded_at)
			FROM %s
			GROUP BY station_id`, src.TableName())

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("querying %s station status: %w", src, err)
		}

		for rows.Next() {
			var name, stationID, last string
			if err := rows.Scan(&name, &stationID, &last); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning %s station status: %w", src, err)
			}

			if prev, ok := byName[name]; ok && prev.LastUpdate >= last {
				continue
			}

			st := Status{Station: name, StationID: stationID, Source: src, LastUpdate: last}
			if ts, err := time.Parse(time.RFC3339, last); err == nil {
				age := now.Sub(ts)
				st.Online = age < timeout
				st.MinutesSince = age.Minutes()
			}
			byName[name] = st
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating %s station status: %w", src, err)
		}
		rows.Close()
	}

	out := make([]Status, 0, len(byName))
	for _, st := range byName {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out, nil
}

// Stats returns historical readings downsampled to one row per station,
// parameter and time bucket, keeping the newest row in each bucket.
// Results are merged across the selected sources, newest first.
func (s *Store) Stats(ctx context.Context, f Filters) ([]StatPoint, error) {
	interval := time.Duration(f.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultStatsLimit
	}
	if limit > maxStatsLimit {
		limit = maxStatsLimit
	}

	sources := reading.Sources()
	if f.Source != "" {
		if f.Source.TableName() == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, f.Source)
		}
		sources = []reading.Source{f.Source}
	}

	var points []StatPoint
	for _, src := range sources {
		srcPoints, err := s.statsForSource(ctx, src, f, interval, limit)
		if err != nil {
			return nil, err
		}
		points = append(points, srcPoints...)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].RecordedAt > points[j].RecordedAt })
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (s *Store) statsForSource(ctx context.Context, src reading.Source, f Filters, interval time.Duration, limit int) ([]StatPoint, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.StationIDs) > 0 {
		placeholders := strings.Repeat("?,", len(f.StationIDs))
		conds = append(conds, fmt.Sprintf("station_id IN (%s)", placeholders[:len(placeholders)-1]))
		for _, id := range f.StationIDs {
			args = append(args, id)
		}
	}
	if f.Parameter != "" {
		conds = append(conds, "parameter_name = ?")
		args = append(args, f.Parameter)
	}
	if !f.Start.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, f.Start.UTC().Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, f.End.UTC().Format(time.RFC3339))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT station_name, station_id, parameter_name, value, unit, observed_at, recorded_at
		FROM (
			SELECT station_name, station_id, parameter_name, value, unit, observed_at, recorded_at,
				ROW_NUMBER() OVER (
					PARTITION BY station_id, parameter_name,
						CAST(strftime('%%s', recorded_at) AS INTEGER) / ?
					ORDER BY recorded_at DESC, id DESC
				) AS rn
			FROM %s
			%s
		)
		WHERE rn = 1
		ORDER BY recorded_at DESC
		LIMIT ?`, src.TableName(), where)

	queryArgs := append([]any{int64(interval.Seconds())}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying %s stats: %w", src, err)
	}
	defer rows.Close()

	var points []StatPoint
	for rows.Next() {
		var (
			p     StatPoint
			value sql.NullFloat64
		)
		if err := rows.Scan(&p.Station, &p.StationID, &p.Parameter, &value, &p.Unit, &p.ObservedAt, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning %s stat point: %w", src, err)
		}
		p.Source = src
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s stats: %w", src, err)
	}
	return points, nil
}

// Stations lists the station registry, alphabetically by name.
func (s *Store) Stations(ctx context.Context) ([]reading.StationInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, station_name, station_type, latitude, longitude, created_at, updated_at
		FROM stations
		ORDER BY station_name`)
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	var out []reading.StationInfo
	for rows.Next() {
		var (
			info             reading.StationInfo
			srcType          string
			lat, lng         sql.NullFloat64
			created, updated string
		)
		if err := rows.Scan(&info.StationID, &info.Name, &srcType, &lat, &lng, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		if src, err := reading.ParseSource(strings.ToLower(srcType)); err == nil {
			info.Source = src
		}
		if lat.Valid {
			v := lat.Float64
			info.Lat = &v
		}
		if lng.Valid {
			v := lng.Float64
			info.Lng = &v
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			info.CreatedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339, updated); err == nil {
			info.UpdatedAt = ts
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}
	return out, nil
}

// Parameter is one distinct parameter name observed for a source.
type Parameter struct {
	Source reading.Source `json:"source"`
	Name   string         `json:"name"`
	Unit   string         `json:"unit,omitempty"`
}

// Parameters lists the distinct parameters seen per source.
func (s *Store) Parameters(ctx context.Context) ([]Parameter, error) {
	var out []Parameter
	for _, src := range reading.Sources() {
		query := fmt.Sprintf(`
			SELECT parameter_name, MAX(unit)
			FROM %s
			GROUP BY parameter_name
			ORDER BY parameter_name`, src.TableName())

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("querying %s parameters: %w", src, err)
		}
		for rows.Next() {
			p := Parameter{Source: src}
			if err := rows.Scan(&p.Name, &p.Unit); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning %s parameter: %w", src, err)
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating %s parameters: %w", src, err)
		}
		rows.Close()
	}
	return out, nil
}

func formatValue(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
