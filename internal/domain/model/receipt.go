package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Store status codes returned by the receipt verifier.
const (
	ReceiptStatusValid         = 0
	ReceiptStatusSandboxInProd = 21007
	MockReceiptSentinel        = "TEST_RECEIPT_DATA"
	MockMembershipDurationDays = 30
)

// ReceiptTransaction is the normalized latest transaction of a verified receipt.
type ReceiptTransaction struct {
	TransactionID string
	ProductID     string
	PurchaseDate  time.Time
	ExpiresDate   *time.Time
}

// VerifiedReceipt is the normalized verifier response.
type VerifiedReceipt struct {
	Status int
	Latest *ReceiptTransaction
	Raw    json.RawMessage
}

func (r *VerifiedReceipt) Valid() bool {
	return r != nil && r.Status == ReceiptStatusValid && r.Latest != nil
}

// ReceiptPurchase is a verify request from a mobile client.
type ReceiptPurchase struct {
	UserID      string
	ReceiptData string
	ProductID   string
	ListingID   string
	Platform    Platform
}

// StoreProduct is what a store product id grants.
type StoreProduct struct {
	Kind         PackageKind
	PackageName  string
	DurationDays int
}

var storeProducts = map[string]StoreProduct{
	"trphone.premium.basic1":   {Kind: PackageKindMembership, PackageName: "basic"},
	"trphone.premium.standard": {Kind: PackageKindMembership, PackageName: "standard"},
	"trphone.premium.pro":      {Kind: PackageKindMembership, PackageName: "pro"},
	"trphone.featured.1day":    {Kind: PackageKindBoost, PackageName: "boost_1_day", DurationDays: 1},
	"trphone.featured.7day":    {Kind: PackageKindBoost, PackageName: "boost_1_week", DurationDays: 7},
	"trphone.featured.30day":   {Kind: PackageKindBoost, PackageName: "boost_1_month", DurationDays: 30},
}

// LookupStoreProduct maps a store product id to the package it grants.
func LookupStoreProduct(productID string) (StoreProduct, bool) {
	p, ok := storeProducts[strings.TrimSpace(productID)]
	return p, ok
}
