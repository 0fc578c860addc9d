package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"    // checkout opened; awaiting callback
	PaymentStatusProcessing PaymentStatus = "processing" // callback lock taken
	PaymentStatusSuccess    PaymentStatus = "success"    // entitlement granted
	PaymentStatusFailed     PaymentStatus = "failed"     // init, verification or apply failed
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type PaymentProvider string

const (
	PaymentProviderGateway PaymentProvider = "gateway"
	PaymentProviderManual  PaymentProvider = "manual"
	PaymentProviderReceipt PaymentProvider = "receipt"
)

// Failure reasons recorded on failed payments.
const (
	FailReasonInitError       = "IYZICO_INIT_ERROR"
	FailReasonInitFailed      = "IYZICO_INIT_FAILED"
	FailReasonPaymentFailed   = "IYZICO_PAYMENT_FAILED"
	FailReasonGatewayUnreach  = "GATEWAY_UNAVAILABLE"
	FailReasonCheckoutAbandon = "CHECKOUT_ABANDONED"
	FailReasonApplyIntegrity  = "APPLY_INTEGRITY_FAULT"
)

// PaymentMeta is the requested purchase as the buyer expressed it.
type PaymentMeta struct {
	Type     string `json:"type"`               // premium | boost
	Plan     string `json:"plan,omitempty"`     // membership package name
	Duration string `json:"duration,omitempty"` // 24h | 7d | 30d
	Platform string `json:"platform,omitempty"` // web | ios | android
}

// Payment is one attempt by one user to pay for one package.
type Payment struct {
	ID             string // UUID, doubles as the gateway conversation id
	UserID         string
	PackageID      string
	ListingID      *string // boost only
	Amount         decimal.Decimal
	Currency       string
	Status         PaymentStatus
	Provider       PaymentProvider
	ProviderToken  string
	CheckoutURL    string // hosted page of the bound session
	ProviderResult json.RawMessage
	FailReason     string
	Meta           PaymentMeta
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

func (p *Payment) HasListing() bool { return p.ListingID != nil && *p.ListingID != "" }
