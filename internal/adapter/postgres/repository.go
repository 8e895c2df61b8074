// Package postgres stores normalized events in a PostGIS table and serves
// filtered queries from it, as an alternative to the in-memory window.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the postgres driver
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS sanitation_events (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL,
	category       TEXT NOT NULL,
	region         TEXT NOT NULL,
	zone_id        TEXT NOT NULL DEFAULT '',
	geom           geometry(Point, 4326),
	address        TEXT NOT NULL DEFAULT '',
	priority       TEXT NOT NULL,
	status         TEXT NOT NULL,
	tonnage        DOUBLE PRECISION,
	geo_source     TEXT NOT NULL DEFAULT '',
	geo_confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS sanitation_events_occurred_at_idx ON sanitation_events (occurred_at);
CREATE INDEX IF NOT EXISTS sanitation_events_geom_idx ON sanitation_events USING GIST (geom);`

const insertEvent = `
	INSERT INTO sanitation_events
		(id, kind, occurred_at, category, region, zone_id, geom, address,
		 priority, status, tonnage, geo_source, geo_confidence)
	VALUES
		(:id, :kind, :occurred_at, :category, :region, :zone_id,
		 ST_SetSRID(ST_MakePoint(CAST(:lng AS DOUBLE PRECISION), CAST(:lat AS DOUBLE PRECISION)), 4326),
		 :address, :priority, :status, :tonnage, :geo_source, :geo_confidence)
	ON CONFLICT (id) DO NOTHING`

const selectColumns = `
	id, kind, occurred_at, category, region, zone_id,
	ST_Y(geom) AS lat, ST_X(geom) AS lng,
	address, priority, status, tonnage, geo_source, geo_confidence`

// row is the database shape of an event.
type row struct {
	ID            string          `db:"id"`
	Kind          string          `db:"kind"`
	OccurredAt    time.Time       `db:"occurred_at"`
	Category      string          `db:"category"`
	Region        string          `db:"region"`
	ZoneID        string          `db:"zone_id"`
	Lat           sql.NullFloat64 `db:"lat"`
	Lng           sql.NullFloat64 `db:"lng"`
	Address       string          `db:"address"`
	Priority      string          `db:"priority"`
	Status        string          `db:"status"`
	Tonnage       sql.NullFloat64 `db:"tonnage"`
	GeoSource     string          `db:"geo_source"`
	GeoConfidence float64         `db:"geo_confidence"`
}

// Repository implements domain.EventQuery and the pipeline's batch loader
// on top of PostgreSQL with PostGIS.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewRepository(db), nil
}

// Migrate creates the events table and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// LoadBatch inserts events, ignoring IDs that already exist.
func (r *Repository) LoadBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]row, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareNamedContext(ctx, insertEvent)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rw := range rows {
		if _, err := stmt.ExecContext(ctx, rw); err != nil {
			return fmt.Errorf("insert event %s: %w", rw.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Query returns events matching f in timestamp order.
func (r *Repository) Query(ctx context.Context, f domain.Filter) ([]domain.Event, error) {
	query, args := buildQuery(f)

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]domain.Event, len(rows))
	for i, rw := range rows {
		events[i] = rw.toEvent()
	}
	return events, nil
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres not reachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// buildQuery renders f as a parameterized SELECT. With a limit, the most
// recent rows are selected and then re-ordered ascending.
func buildQuery(f domain.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.From.IsZero() {
		where = append(where, "occurred_at >= "+arg(f.From.UTC()))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at < "+arg(f.To.UTC()))
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(string(f.Kind)))
	}
	if f.Region != "" {
		where = append(where, "region = "+arg(string(f.Region)))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.ZoneID != "" {
		where = append(where, "zone_id = "+arg(f.ZoneID))
	}
	if b := f.Bounds; b != nil {
		where = append(where, fmt.Sprintf("ST_Intersects(geom, ST_MakeEnvelope(%s, %s, %s, %s, 4326))",
			arg(b.MinLng), arg(b.MinLat), arg(b.MaxLng), arg(b.MaxLat)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT")
	sb.WriteString(selectColumns)
	sb.WriteString("\n\tFROM sanitation_events")
	if len(where) > 0 {
		sb.WriteString("\n\tWHERE ")
		sb.WriteString(strings.Join(where, "\n\tAND "))
	}

	if f.Limit > 0 {
		sb.WriteString("\n\tORDER BY occurred_at DESC, id DESC\n\tLIMIT ")
		sb.WriteString(arg(f.Limit))
		return "SELECT * FROM (" + sb.String() + ") recent ORDER BY occurred_at, id", args
	}
	sb.WriteString("\n\tORDER BY occurred_at, id")
	return sb.String(), args
}

func toRow(e domain.Event) row {
	rw := row{
		ID:            e.ID,
		Kind:          string(e.Kind),
		OccurredAt:    e.Timestamp.UTC(),
		Category:      e.Category,
		Region:        string(e.Region),
		ZoneID:        e.ZoneID,
		Address:       e.Address,
		Priority:      string(e.Priority),
		Status:        string(e.Status),
		GeoSource:     e.GeoSource,
		GeoConfidence: e.GeoConfidence,
	}
	if e.Location != nil {
		rw.Lat = sql.NullFloat64{Float64: e.Location.Lat, Valid: true}
		rw.Lng = sql.NullFloat64{Float64: e.Location.Lng, Valid: true}
	}
	if e.Tonnage != nil {
		rw.Tonnage = sql.NullFloat64{Float64: *e.Tonnage, Valid: true}
	}
	return rw
}

func (rw row) toEvent() domain.Event {
	e := domain.Event{
		ID:            rw.ID,
		Kind:          domain.Kind(rw.Kind),
		Timestamp:     rw.OccurredAt.UTC(),
		Category:      rw.Category,
		Region:        domain.Region(rw.Region),
		ZoneID:        rw.ZoneID,
		Address:       rw.Address,
		Priority:      domain.Priority(rw.Priority),
		Status:        domain.Status(rw.Status),
		GeoSource:     rw.GeoSource,
		GeoConfidence: rw.GeoConfidence,
	}
	if rw.Lat.Valid && rw.Lng.Valid {
		e.Location = &domain.Geo{Lat: rw.Lat.Float64, Lng: rw.Lng.Float64}
	}
	if rw.Tonnage.Valid {
		t := rw.Tonnage.Float64
		e.Tonnage = &t
	}
	return e
}
