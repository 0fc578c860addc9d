package adapter

import (
	"context"

	"github.com/myagiz61/backend/internal/domain/model"
)

// PaymentGateway is the hex port for the hosted-checkout provider.
// Implementations are constructed with their credentials; there is no
// process-wide client.
type PaymentGateway interface {
	Name() string

	// InitCheckout opens a hosted checkout session for one basket item.
	InitCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
	// RetrieveResult asks the provider for the final status behind a checkout token.
	RetrieveResult(ctx context.Context, token string) (*model.GatewayResult, error)
}
