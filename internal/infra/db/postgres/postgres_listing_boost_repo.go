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

var _ repository.BoostRepository = (*boostRepo)(nil)

type boostRepo struct {
	pool *pgxpool.Pool
}

func NewBoostRepo(pool *pgxpool.Pool) *boostRepo {
	return &boostRepo{pool: pool}
}

const boostCols = `id, listing_id, seller_id, package_id, payment_id, start_date, end_date, is_active, source, product_id, transaction_id, created_at`

func (r *boostRepo) Save(ctx context.Context, tx repository.Tx, b *model.ListingBoost) error {
	const q = `
INSERT INTO listing_boosts (` + boostCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  end_date=$7, is_active=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		b.ID, b.ListingID, b.SellerID, b.PackageID, b.PaymentID, b.StartDate, b.EndDate, b.IsActive, string(b.Source),
		nullIfEmpty(b.ProductID), nullIfEmpty(b.TransactionID), b.CreatedAt,
	)
	return mapWriteErr(err)
}

func (r *boostRepo) FindActiveByListing(ctx context.Context, tx repository.Tx, listingID string) (*model.ListingBoost, error) {
	const q = `
SELECT ` + boostCols + `
  FROM listing_boosts
 WHERE listing_id=$1 AND is_active
 ORDER BY end_date DESC
 LIMIT 1`
	return r.queryOne(ctx, tx, q, listingID)
}

func (r *boostRepo) FindByTransaction(ctx context.Context, tx repository.Tx, productID, transactionID string) (*model.ListingBoost, error) {
	const q = `
SELECT ` + boostCols + `
  FROM listing_boosts
 WHERE product_id=$1 AND transaction_id=$2
 LIMIT 1`
	return r.queryOne(ctx, tx, q, productID, transactionID)
}

// DeactivateActiveByListing locks the listing row first so concurrent boosts
// of the same listing run one after the other.
func (r *boostRepo) DeactivateActiveByListing(ctx context.Context, tx repository.Tx, listingID string) (int64, error) {
	if err := lockParentRow(ctx, r.pool, tx, `SELECT 1 FROM listings WHERE id=$1 FOR UPDATE`, listingID); err != nil {
		return 0, err
	}
	const q = `UPDATE listing_boosts SET is_active=false WHERE listing_id=$1 AND is_active`
	cmd, err := execSQL(ctx, r.pool, tx, q, listingID)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *boostRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.ListingBoost, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + boostCols + `
  FROM listing_boosts
 WHERE is_active AND end_date <= $1
 ORDER BY end_date ASC
 LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.ListingBoost
	for rows.Next() {
		b, err := scanBoost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *boostRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE listing_boosts SET is_active=false WHERE id=$1 AND is_active`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *boostRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.ListingBoost, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanBoost(row)
}

func scanBoost(row pgx.Row) (*model.ListingBoost, error) {
	var (
		b                model.ListingBoost
		source           string
		productID, txnID *string
	)
	if err := row.Scan(&b.ID, &b.ListingID, &b.SellerID, &b.PackageID, &b.PaymentID, &b.StartDate, &b.EndDate,
		&b.IsActive, &source, &productID, &txnID, &b.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	b.Source = model.BoostSource(source)
	b.ProductID = derefString(productID)
	b.TransactionID = derefString(txnID)
	return &b, nil
}
