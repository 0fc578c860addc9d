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

var _ repository.ListingRepository = (*listingRepo)(nil)

type listingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *listingRepo {
	return &listingRepo{pool: pool}
}

const listingCols = `id, seller_id, title, price, status, expires_at, is_boosted, boost_expires_at, created_at`

func (r *listingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	const q = `
INSERT INTO listings (` + listingCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  title=$3, price=$4, status=$5, expires_at=$6;`
	status := l.Status
	if status == "" {
		status = model.ListingStatusActive
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		l.ID, l.SellerID, l.Title, l.Price, string(status), l.ExpiresAt, l.IsBoosted, l.BoostExpiresAt, l.CreatedAt,
	)
	return mapWriteErr(err)
}

func (r *listingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+listingCols+` FROM listings WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanListing(row)
}

func (r *listingRepo) SetBoostCache(ctx context.Context, tx repository.Tx, listingID string, expiresAt time.Time) error {
	const q = `UPDATE listings SET is_boosted=true, boost_expires_at=$2 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, listingID, expiresAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearExpiredBoost skips listings re-boosted after the sweep listed the old boost.
func (r *listingRepo) ClearExpiredBoost(ctx context.Context, tx repository.Tx, listingID string, now time.Time) (bool, error) {
	const q = `
UPDATE listings
   SET is_boosted=false, boost_expires_at=NULL
 WHERE id=$1 AND (boost_expires_at IS NULL OR boost_expires_at <= $2);`
	cmd, err := execSQL(ctx, r.pool, tx, q, listingID, now)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *listingRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	const q = `
SELECT ` + listingCols + `
  FROM listings
 WHERE status='ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
 ORDER BY expires_at ASC
 LIMIT $2`
	return r.list(ctx, tx, q, now, limit)
}

func (r *listingRepo) ListExpiredBoostCache(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	const q = `
SELECT ` + listingCols + `
  FROM listings
 WHERE is_boosted AND boost_expires_at IS NOT NULL AND boost_expires_at <= $1
 ORDER BY boost_expires_at ASC
 LIMIT $2`
	return r.list(ctx, tx, q, now, limit)
}

func (r *listingRepo) list(ctx context.Context, tx repository.Tx, q string, now time.Time, limit int) ([]*model.Listing, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *listingRepo) MarkPassive(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE listings SET status='PASSIVE' WHERE id=$1 AND status='ACTIVE'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *listingRepo) CountActiveBySeller(ctx context.Context, tx repository.Tx, sellerID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM listings WHERE seller_id=$1 AND status='ACTIVE'`, sellerID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var (
		l      model.Listing
		status string
	)
	if err := row.Scan(&l.ID, &l.SellerID, &l.Title, &l.Price, &status, &l.ExpiresAt, &l.IsBoosted,
		&l.BoostExpiresAt, &l.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	l.Status = model.ListingStatus(status)
	return &l, nil
}
