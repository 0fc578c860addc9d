package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentCols = `id, user_id, package_id, listing_id, amount, currency, status, provider, provider_token, provider_result, fail_reason, meta, created_at, updated_at, checkout_url`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payments (` + paymentCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  amount=$5, currency=$6, status=$7, provider=$8, provider_token=$9, provider_result=$10,
  fail_reason=$11, meta=$12, updated_at=$14, checkout_url=$15;`

	_, err = execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.PackageID, p.ListingID, p.Amount, p.Currency, string(p.Status), string(p.Provider),
		nullIfEmpty(p.ProviderToken), rawOrNil(p.ProviderResult), p.FailReason, meta, p.CreatedAt, p.UpdatedAt,
		nullIfEmpty(p.CheckoutURL),
	)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentCols+` FROM payments WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Payment, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	q := forUpdate(`SELECT `+paymentCols+` FROM payments WHERE provider_token=$1 LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, token)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindPending(ctx context.Context, tx repository.Tx, userID, packageID string, listingID *string) (*model.Payment, error) {
	const q = `
SELECT ` + paymentCols + ` FROM payments
 WHERE user_id=$1 AND package_id=$2 AND status='pending'
   AND listing_id IS NOT DISTINCT FROM $3
 ORDER BY created_at DESC
 LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, userID, packageID, listingID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// SetSession binds a gateway session to a pending payment that has none yet.
func (r *paymentRepo) SetSession(ctx context.Context, tx repository.Tx, id, token, pageURL string) (bool, error) {
	const q = `
UPDATE payments
   SET provider_token=$2, checkout_url=$3, updated_at=NOW()
 WHERE id=$1 AND status='pending' AND provider_token IS NULL`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, nullIfEmpty(token), nullIfEmpty(pageURL))
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

// LockForProcessing is the only way out of pending towards success.
// Exactly one concurrent caller sees the row returned.
func (r *paymentRepo) LockForProcessing(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	const q = `
UPDATE payments
   SET status='processing', updated_at=NOW()
 WHERE id=$1 AND status='pending'
RETURNING ` + paymentCols
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err == domain.ErrNotFound {
		return nil, nil
	}
	return p, err
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, from model.PaymentStatus, reason string, raw json.RawMessage) (bool, error) {
	const q = `
UPDATE payments
   SET status='failed', fail_reason=$3, provider_result=COALESCE($4, provider_result), updated_at=NOW()
 WHERE id=$1 AND status=$2`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), reason, rawOrNil(raw))
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string, raw json.RawMessage) (bool, error) {
	const q = `
UPDATE payments
   SET status='success', provider_result=COALESCE($2, provider_result), updated_at=NOW()
 WHERE id=$1 AND status='processing'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, rawOrNil(raw))
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListStale(ctx context.Context, tx repository.Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + paymentCols + ` FROM payments
 WHERE status=$1 AND updated_at < $2
 ORDER BY updated_at ASC
 LIMIT $3`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status), olderThan, limit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p            model.Payment
		status, prov string
		token, page  *string
		result, meta []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PackageID, &p.ListingID, &p.Amount, &p.Currency, &status, &prov,
		&token, &result, &p.FailReason, &meta, &p.CreatedAt, &p.UpdatedAt, &page); err != nil {
		return nil, mapScanErr(err)
	}
	p.Status = model.PaymentStatus(status)
	p.Provider = model.PaymentProvider(prov)
	if token != nil {
		p.ProviderToken = *token
	}
	if page != nil {
		p.CheckoutURL = *page
	}
	if len(result) > 0 {
		p.ProviderResult = json.RawMessage(result)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Meta); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
