// File: internal/infra/adapters/payment/iyzico_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*IyzicoGateway)(nil)

const (
	iyzicoInitPath     = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	iyzicoRetrievePath = "/payment/iyzipos/checkoutform/auth/ecom/detail"
)

// IyzicoGateway implements adapter.PaymentGateway against the iyzico
// checkout form REST API with IYZWSv2 request signing.
type IyzicoGateway struct {
	apiKey    string
	secretKey string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

func NewIyzicoGateway(cfg config.IyzicoConfig) (*IyzicoGateway, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("iyzico api key and secret key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &IyzicoGateway{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}, nil
}

func (g *IyzicoGateway) Name() string { return "iyzico" }

type iyzicoBuyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
}

type iyzicoAddress struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
}

type iyzicoBasketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type iyzicoInitRequest struct {
	Locale              string             `json:"locale"`
	ConversationID      string             `json:"conversationId"`
	Price               string             `json:"price"`
	PaidPrice           string             `json:"paidPrice"`
	Currency            string             `json:"currency"`
	BasketID            string             `json:"basketId"`
	PaymentGroup        string             `json:"paymentGroup"`
	CallbackURL         string             `json:"callbackUrl"`
	EnabledInstallments []int              `json:"enabledInstallments"`
	Buyer               iyzicoBuyer        `json:"buyer"`
	ShippingAddress     iyzicoAddress      `json:"shippingAddress"`
	BillingAddress      iyzicoAddress      `json:"billingAddress"`
	BasketItems         []iyzicoBasketItem `json:"basketItems"`
}

type iyzicoResponse struct {
	Status              string `json:"status"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
	ConversationID      string `json:"conversationId"`
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
	PaymentStatus       string `json:"paymentStatus"`
}

// InitCheckout opens a hosted checkout form. A provider-side rejection comes
// back as a fault coded IYZICO_INIT_FAILED carrying the provider message.
func (g *IyzicoGateway) InitCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	name := strings.TrimSpace(req.Buyer.Name)
	if name == "" {
		name = "TRPHONE"
	}
	contact := name + " USER"
	addr := iyzicoAddress{ContactName: contact, City: "Istanbul", Country: "Turkey", Address: "Türkiye"}
	body := iyzicoInitRequest{
		Locale:              "tr",
		ConversationID:      req.ConversationID,
		Price:               req.Price,
		PaidPrice:           req.Price,
		Currency:            req.Currency,
		BasketID:            req.ConversationID,
		PaymentGroup:        "PRODUCT",
		CallbackURL:         req.CallbackURL,
		EnabledInstallments: []int{1},
		Buyer: iyzicoBuyer{
			ID:                  req.Buyer.ID,
			Name:                name,
			Surname:             "USER",
			Email:               req.Buyer.Email,
			IdentityNumber:      "00000000000",
			RegistrationAddress: "Türkiye",
			IP:                  req.Buyer.IP,
			City:                "Istanbul",
			Country:             "Turkey",
		},
		ShippingAddress: addr,
		BillingAddress:  addr,
		BasketItems: []iyzicoBasketItem{{
			ID:        req.Item.ID,
			Name:      req.Item.Name,
			Category1: req.Item.Category,
			ItemType:  "VIRTUAL",
			Price:     req.Item.Price,
		}},
	}

	var out iyzicoResponse
	if _, err := g.post(ctx, iyzicoInitPath, body, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" || out.Token == "" {
		return nil, domain.Upstream(model.FailReasonInitFailed, out.ErrorMessage, errors.New("iyzico init rejected"))
	}
	return &model.CheckoutResult{
		Token:               out.Token,
		PaymentPageURL:      out.PaymentPageURL,
		CheckoutFormContent: out.CheckoutFormContent,
	}, nil
}

// RetrieveResult fetches the final state of a checkout form. The raw provider
// body is returned untouched for auditing.
func (g *IyzicoGateway) RetrieveResult(ctx context.Context, token string) (*model.GatewayResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrInvalidArgument
	}
	body := map[string]string{"locale": "tr", "token": token}

	var out iyzicoResponse
	raw, err := g.post(ctx, iyzicoRetrievePath, body, &out)
	if err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("iyzico retrieve failed: %s %s", out.ErrorCode, out.ErrorMessage)
	}
	status := model.GatewayStatusFailure
	if out.PaymentStatus == string(model.GatewayStatusSuccess) {
		status = model.GatewayStatusSuccess
	}
	return &model.GatewayResult{
		ConversationID: out.ConversationID,
		Status:         status,
		ErrorMessage:   out.ErrorMessage,
		Raw:            raw,
	}, nil
}

func (g *IyzicoGateway) post(ctx context.Context, path string, payload any, out *iyzicoResponse) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	rnd := g.randomKey()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-iyzi-rnd", rnd)
	req.Header.Set("Authorization", g.authorization(rnd, path, b))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("iyzico http %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode iyzico response: %w", err)
	}
	return raw, nil
}

func (g *IyzicoGateway) randomKey() string {
	return strconv.FormatInt(g.now().UnixMilli(), 10) + ulid.Make().String()
}

// authorization builds the IYZWSv2 header: HMAC-SHA256 over randomKey, the
// uri path and the body, wrapped with the api key and base64 encoded.
func (g *IyzicoGateway) authorization(randomKey, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(randomKey + path))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))
	params := "apiKey:" + g.apiKey + "&randomKey:" + randomKey + "&signature:" + sig
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(params))
}
