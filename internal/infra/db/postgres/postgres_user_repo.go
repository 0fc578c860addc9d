package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, name, is_admin, plan, plan_expires_at, registered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, is_admin=$4;
`
	plan := u.Plan
	if plan == "" {
		plan = model.PlanFree
	}
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.Name, u.IsAdmin, plan, u.PlanExpiresAt, u.RegisteredAt)
	return mapWriteErr(err)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := forUpdate(`
SELECT id, email, name, is_admin, plan, plan_expires_at, registered_at
  FROM users WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.Plan, &u.PlanExpiresAt, &u.RegisteredAt); err != nil {
		return nil, mapScanErr(err)
	}
	return &u, nil
}

func (r *PostgresUserRepo) SetPlanCache(ctx context.Context, tx repository.Tx, userID, plan string, expiresAt *time.Time) error {
	const q = `UPDATE users SET plan=$2, plan_expires_at=$3 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, plan, expiresAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearExpiredPlan leaves a cache pointing past now untouched, so a plan
// renewed after the sweep listed its old subscription survives.
func (r *PostgresUserRepo) ClearExpiredPlan(ctx context.Context, tx repository.Tx, userID string, now time.Time) (bool, error) {
	const q = `
UPDATE users
   SET plan='free', plan_expires_at=NULL
 WHERE id=$1 AND plan_expires_at IS NOT NULL AND plan_expires_at <= $2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}
