package model

import "encoding/json"

// IncomingCallback is a gateway callback normalized by the transport layer.
type IncomingCallback struct {
	Token    string
	Platform Platform
}

// GatewayStatus is the final status reported by the gateway.
type GatewayStatus string

const (
	GatewayStatusSuccess GatewayStatus = "SUCCESS"
	GatewayStatusFailure GatewayStatus = "FAILURE"
)

// CheckoutResult is the outcome of opening a hosted checkout session.
type CheckoutResult struct {
	Token               string
	PaymentPageURL      string
	CheckoutFormContent string
}

// CheckoutRequest is everything the gateway needs to open a session.
type CheckoutRequest struct {
	ConversationID string
	Price          string
	Currency       string
	CallbackURL    string
	Buyer          Buyer
	Item           BasketItem
}

type Buyer struct {
	ID    string
	Name  string
	Email string
	IP    string
}

type BasketItem struct {
	ID       string
	Name     string
	Category string
	Price    string
}

// GatewayResult is the gateway's final answer for a checkout token.
type GatewayResult struct {
	ConversationID string
	Status         GatewayStatus
	ErrorMessage   string
	Raw            json.RawMessage
}

// CallbackOutcome is what the transport layer needs to choose a redirect.
type CallbackOutcome string

const (
	CallbackSucceeded CallbackOutcome = "success"
	CallbackFailed    CallbackOutcome = "failure"
	CallbackDuplicate CallbackOutcome = "duplicate"
	CallbackMalformed CallbackOutcome = "malformed"
	// CallbackConflict is a gateway success for a payment already stored as failed.
	CallbackConflict CallbackOutcome = "conflict"
)

// Redirects to the success page.
func (o CallbackOutcome) Successful() bool {
	return o == CallbackSucceeded || o == CallbackDuplicate
}
