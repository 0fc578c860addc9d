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

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionCols = `id, user_id, package_id, payment_id, start_date, end_date, is_active, platform, product_id, transaction_id, created_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  end_date=$6, is_active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PackageID, s.PaymentID, s.StartDate, s.EndDate, s.IsActive, string(s.Platform),
		nullIfEmpty(s.ProductID), nullIfEmpty(s.TransactionID), s.CreatedAt,
	)
	return mapWriteErr(err)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionCols + `
  FROM subscriptions
 WHERE user_id=$1 AND is_active
 ORDER BY end_date DESC
 LIMIT 1`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) FindByTransaction(ctx context.Context, tx repository.Tx, productID, transactionID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionCols + `
  FROM subscriptions
 WHERE product_id=$1 AND transaction_id=$2
 LIMIT 1`
	return r.queryOne(ctx, tx, q, productID, transactionID)
}

// DeactivateActiveByUser locks the user row first so concurrent grants for
// the same user run one after the other.
func (r *subscriptionRepo) DeactivateActiveByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	if err := lockParentRow(ctx, r.pool, tx, `SELECT 1 FROM users WHERE id=$1 FOR UPDATE`, userID); err != nil {
		return 0, err
	}
	const q = `UPDATE subscriptions SET is_active=false WHERE user_id=$1 AND is_active`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *subscriptionRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + subscriptionCols + `
  FROM subscriptions
 WHERE is_active AND end_date <= $1
 ORDER BY end_date ASC
 LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE subscriptions SET is_active=false WHERE id=$1 AND is_active`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanSub(row)
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	var (
		s                model.Subscription
		platform         string
		productID, txnID *string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.PackageID, &s.PaymentID, &s.StartDate, &s.EndDate, &s.IsActive,
		&platform, &productID, &txnID, &s.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	s.Platform = model.Platform(platform)
	s.ProductID = derefString(productID)
	s.TransactionID = derefString(txnID)
	return &s, nil
}

// lockParentRow takes a row lock inside tx. Outside a transaction it is a no-op.
func lockParentRow(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, id string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil
	}
	row, err := pickRow(ctx, pool, tx, q, id)
	if err != nil {
		return err
	}
	var one int
	if err := row.Scan(&one); err != nil {
		return mapScanErr(err)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
