package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/myagiz61/backend/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row (FOR UPDATE) when tx is a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Payment, error)
	// FindPending returns the open checkout of a user for a package (and listing).
	FindPending(ctx context.Context, tx Tx, userID, packageID string, listingID *string) (*model.Payment, error)
	// SetSession binds token and page url to a pending payment without one; false when already bound.
	SetSession(ctx context.Context, tx Tx, id, token, pageURL string) (bool, error)

	// LockForProcessing is the single conditional pending->processing update.
	// It returns (nil, nil) when the payment is missing or not pending.
	LockForProcessing(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// MarkFailed moves the payment from `from` to failed; false when it was not in `from`.
	MarkFailed(ctx context.Context, tx Tx, id string, from model.PaymentStatus, reason string, raw json.RawMessage) (bool, error)
	// MarkSucceeded moves the payment from processing to success.
	MarkSucceeded(ctx context.Context, tx Tx, id string, raw json.RawMessage) (bool, error)

	ListStale(ctx context.Context, tx Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error)
}
