package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PackageRepository = (*PostgresPackageRepo)(nil)

type PostgresPackageRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPackageRepo(pool *pgxpool.Pool) *PostgresPackageRepo {
	return &PostgresPackageRepo{pool: pool}
}

const packageCols = `id, name, kind, duration_days, price, is_active, created_at, updated_at`

// Save upserts by name. The stored id wins, so reseeding never orphans payments.
func (r *PostgresPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	const q = `
INSERT INTO packages (` + packageCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (name) DO UPDATE
  SET kind          = EXCLUDED.kind,
      duration_days = EXCLUDED.duration_days,
      price         = EXCLUDED.price,
      is_active     = EXCLUDED.is_active,
      updated_at    = EXCLUDED.updated_at
RETURNING id;
`
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	row, err := pickRow(ctx, r.pool, tx, q,
		p.ID, p.Name, string(p.Kind), p.DurationDays, p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&p.ID); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (r *PostgresPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+packageCols+` FROM packages WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *PostgresPackageRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Package, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+packageCols+` FROM packages WHERE name=$1`, name)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *PostgresPackageRepo) ListActiveByKind(ctx context.Context, tx repository.Tx, kind model.PackageKind) ([]*model.Package, error) {
	const q = `
SELECT ` + packageCols + `
  FROM packages
 WHERE kind=$1 AND is_active
 ORDER BY price ASC, duration_days ASC`
	rows, err := queryRows(ctx, r.pool, tx, q, string(kind))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPackage(row pgx.Row) (*model.Package, error) {
	var (
		p    model.Package
		kind string
	)
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.DurationDays, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	p.Kind = model.PackageKind(kind)
	return &p, nil
}
