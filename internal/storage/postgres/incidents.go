package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IncidentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIncidentRepo(pool *pgxpool.Pool, logger *slog.Logger) *IncidentRepo {
	return &IncidentRepo{pool: pool, logger: logger}
}

const incidentColumns = `
		id,
		type,
		description,
		severity,
		ST_Y(geo_point::geometry) AS lat,
		ST_X(geo_point::geometry) AS lng,
		status,
		score,
		reporter_id,
		created_at`

func (p *IncidentRepo) Put(ctx context.Context, incident *domain.Incident) error {
	const op = "postgres.Incident.Put"

	if !incident.Type.Valid() {
		return fmt.Errorf("%s: unknown type %q: %w", op, incident.Type, e.ErrInvalidInput)
	}
	if !incident.Location().Valid() {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidCoordinates)
	}

	const query = `
		INSERT INTO incidents (id, type, description, severity, geo_point, status, score, reporter_id, created_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			type        = EXCLUDED.type,
			description = EXCLUDED.description,
			severity    = EXCLUDED.severity,
			geo_point   = EXCLUDED.geo_point,
			status      = EXCLUDED.status,
			score       = EXCLUDED.score
	`

	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now().UTC()
	}

	var reporter any
	if incident.ReporterID != uuid.Nil {
		reporter = incident.ReporterID
	}

	_, err := p.pool.Exec(ctx, query,
		incident.ID,
		incident.Type,
		incident.Description,
		incident.Severity,
		incident.Lng,
		incident.Lat,
		incident.Status,
		incident.Score,
		reporter,
		incident.CreatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *IncidentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "postgres.Incident.Get"

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed",
			slog.String("op", op),
			slog.Any("error", err),
			slog.String("id", id.String()),
		)
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

func (p *IncidentRepo) Query(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, int64, error) {
	const op = "postgres.Incident.Query"

	where, args := buildFilter(filter)

	countQuery := `SELECT COUNT(*) FROM incidents ` + where
	var total int64
	if err := p.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		p.logger.Error("db count failed", slog.String("op", op), slog.Any("error", err))
		return nil, 0, e.WrapError(ctx, op, err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Lim
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	listQuery := fmt.Sprintf(
		`SELECT %s FROM incidents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		incidentColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := p.pool.Query(ctx, listQuery, args...)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, 0, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0, limit)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, 0, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, *inc)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, 0, e.WrapError(ctx, op, err)
	}

	return incidents, total, nil
}

// buildFilter assembles the WHERE clause. Only accepted incidents are
// visible through Query; pending and rejected rows never leave the store
// this way.
func buildFilter(filter domain.ReportFilter) (string, []any) {
	conds := []string{"status = 'accepted'"}
	args := make([]any, 0, 6)

	if filter.BBox != nil {
		b := *filter.BBox
		args = append(args, b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
		conds = append(conds, fmt.Sprintf(
			"ST_Within(geo_point::geometry, ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326))",
			len(args)-3, len(args)-2, len(args)-1, len(args),
		))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	var reporter *uuid.UUID
	if err := row.Scan(
		&inc.ID,
		&inc.Type,
		&inc.Description,
		&inc.Severity,
		&inc.Lat,
		&inc.Lng,
		&inc.Status,
		&inc.Score,
		&reporter,
		&inc.CreatedAt,
	); err != nil {
		return nil, err
	}
	if reporter != nil {
		inc.ReporterID = *reporter
	}
	return &inc, nil
}
