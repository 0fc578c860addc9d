package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
)

var _ adapter.ReceiptVerifier = (*AppleVerifier)(nil)

// AppleVerifier talks to the App Store verifyReceipt endpoints.
type AppleVerifier struct {
	secret     string
	prodURL    string
	sandboxURL string
	client     *http.Client
}

func NewAppleVerifier(cfg config.AppleConfig) *AppleVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AppleVerifier{
		secret:     cfg.SharedSecret,
		prodURL:    cfg.ProdURL,
		sandboxURL: cfg.SandboxURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type appleRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

type appleTransaction struct {
	TransactionID  string `json:"transaction_id"`
	ProductID      string `json:"product_id"`
	PurchaseDateMs string `json:"purchase_date_ms"`
	ExpiresDateMs  string `json:"expires_date_ms"`
}

type appleResponse struct {
	Status            int                `json:"status"`
	LatestReceiptInfo []appleTransaction `json:"latest_receipt_info"`
	Receipt           struct {
		InApp []appleTransaction `json:"in_app"`
	} `json:"receipt"`
}

// Verify posts the receipt to production, or to the sandbox when sandbox is
// set. A non-zero store status is returned as-is; the caller decides on retry.
func (v *AppleVerifier) Verify(ctx context.Context, receiptData string, sandbox bool) (*model.VerifiedReceipt, error) {
	endpoint := v.prodURL
	if sandbox {
		endpoint = v.sandboxURL
	}
	b, err := json.Marshal(appleRequest{
		ReceiptData:            receiptData,
		Password:               v.secret,
		ExcludeOldTransactions: true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifyReceipt http %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var out appleResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode verifyReceipt response: %w", err)
	}

	res := &model.VerifiedReceipt{Status: out.Status, Raw: raw}
	if out.Status != model.ReceiptStatusValid {
		return res, nil
	}
	txs := out.LatestReceiptInfo
	if len(txs) == 0 {
		txs = out.Receipt.InApp
	}
	res.Latest = latestTransaction(txs)
	return res, nil
}

// latestTransaction picks the most recent purchase; entries without a
// transaction id are ignored.
func latestTransaction(txs []appleTransaction) *model.ReceiptTransaction {
	var (
		best   *model.ReceiptTransaction
		bestMs int64 = -1
	)
	for _, t := range txs {
		if t.TransactionID == "" {
			continue
		}
		ms, _ := strconv.ParseInt(t.PurchaseDateMs, 10, 64)
		if ms <= bestMs {
			continue
		}
		bestMs = ms
		rt := &model.ReceiptTransaction{
			TransactionID: t.TransactionID,
			ProductID:     t.ProductID,
			PurchaseDate:  time.UnixMilli(ms).UTC(),
		}
		if exp, err := strconv.ParseInt(t.ExpiresDateMs, 10, 64); err == nil && exp > 0 {
			e := time.UnixMilli(exp).UTC()
			rt.ExpiresDate = &e
		}
		best = rt
	}
	return best
}
