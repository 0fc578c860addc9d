package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local runs and tests.
// Every opened checkout succeeds unless Decline was called for its token.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	sessions map[string]*noopSession
}

type noopSession struct {
	conversationID string
	declined       bool
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{sessions: make(map[string]*noopSession)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) InitCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	token := fmt.Sprintf("noop-%d", g.seq)
	g.sessions[token] = &noopSession{conversationID: req.ConversationID}
	return &model.CheckoutResult{
		Token:          token,
		PaymentPageURL: "https://example.test/pay/" + token,
	}, nil
}

// Decline makes the checkout behind token fail on retrieval.
func (g *NoopPaymentGateway) Decline(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[token]; ok {
		s.declined = true
	}
}

func (g *NoopPaymentGateway) RetrieveResult(ctx context.Context, token string) (*model.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	status := model.GatewayStatusSuccess
	msg := ""
	if s.declined {
		status, msg = model.GatewayStatusFailure, "card declined"
	}
	raw, _ := json.Marshal(map[string]string{
		"status":         "success",
		"paymentStatus":  string(status),
		"conversationId": s.conversationID,
		"token":          token,
	})
	return &model.GatewayResult{
		ConversationID: s.conversationID,
		Status:         status,
		ErrorMessage:   msg,
		Raw:            raw,
	}, nil
}
