// Package pgstore provides a PostgreSQL implementation of alert.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/stormgate/internal/alert"
)

var tracer = otel.Tracer("github.com/linnemanlabs/stormgate/internal/alert/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, tenant_id, device_id, alert_type, severity, message,
	source, metadata, acknowledged, acknowledged_by, acknowledged_at, created_at`

// Insert stores a new alert row.
func (s *Store) Insert(ctx context.Context, a *alert.Alert) error {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	var metadataJSON []byte
	if len(a.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	var deviceID *string
	if a.DeviceID != "" {
		deviceID = &a.DeviceID
	}

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.TenantID, deviceID, a.Type, string(a.Severity), a.Message,
		a.Source, metadataJSON, a.Acknowledged, nullIfEmpty(a.AcknowledgedBy),
		nullIfZero(a.AcknowledgedAt), a.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Acknowledge atomically sets the acknowledgment triple in a single update,
// reporting whether a row was found.
func (s *Store) Acknowledge(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Acknowledge", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts
		 SET acknowledged = TRUE, acknowledged_by = $2, acknowledged_at = $3
		 WHERE id = $1`,
		id, userID, at,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns alerts matching the filter, ordered by created_at descending.
func (s *Store) List(ctx context.Context, f alert.ListFilter) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query, args := buildListQuery(f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*alert.Alert, 0)
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return alerts, nil
}

// buildListQuery assembles the filtered SELECT. The tenant predicate is
// always present; everything else is appended conditionally with positional
// args.
func buildListQuery(f alert.ListFilter) (string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{f.TenantID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DeviceID != "" {
		where = append(where, "device_id = "+arg(f.DeviceID))
	}
	if len(f.Severities) > 0 {
		sevs := make([]string, len(f.Severities))
		for i, sev := range f.Severities {
			sevs[i] = string(sev)
		}
		where = append(where, "severity = ANY("+arg(sevs)+")")
	}
	if f.Acknowledged != nil {
		where = append(where, "acknowledged = "+arg(*f.Acknowledged))
	}
	if !f.Start.IsZero() {
		where = append(where, "created_at >= "+arg(f.Start))
	}
	if !f.End.IsZero() {
		where = append(where, "created_at <= "+arg(f.End))
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	return query, args
}

// scanAlertRow scans a single row into an alert.Alert.
func scanAlertRow(row pgx.Row) (*alert.Alert, error) {
	var (
		a              alert.Alert
		deviceID       *string
		severity       string
		metadataJSON   []byte
		acknowledgedBy *string
		acknowledgedAt *time.Time
	)

	err := row.Scan(
		&a.ID, &a.TenantID, &deviceID, &a.Type, &severity, &a.Message,
		&a.Source, &metadataJSON, &a.Acknowledged, &acknowledgedBy,
		&acknowledgedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	a.Severity = alert.Severity(severity)
	if deviceID != nil {
		a.DeviceID = *deviceID
	}
	if acknowledgedBy != nil {
		a.AcknowledgedBy = *acknowledgedBy
	}
	if acknowledgedAt != nil {
		a.AcknowledgedAt = *acknowledgedAt
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &a, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
