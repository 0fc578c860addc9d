package adapter

import (
	"context"

	"github.com/myagiz61/backend/internal/domain/model"
)

// ReceiptVerifier validates a store receipt. Implementations retry once
// against the sandbox when the store reports a sandbox receipt.
type ReceiptVerifier interface {
	Verify(ctx context.Context, receiptData string, sandbox bool) (*model.VerifiedReceipt, error)
}
