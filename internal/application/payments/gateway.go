package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"certhub-backend/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Card is the shape-checked card data forwarded to the gateway. It is never stored.
type Card struct {
	CardNumber  string `json:"card_number" validate:"required,credit_card"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,min=2000,max=2100"`
	CVC         string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	HolderName  string `json:"holder_name" validate:"required,max=100"`
}

// Expired reports whether the card's expiry month has passed at now.
func (c Card) Expired(now time.Time) bool {
	y, m := now.Year(), int(now.Month())
	return c.ExpiryYear < y || (c.ExpiryYear == y && c.ExpiryMonth < m)
}

type OrderRequest struct {
	OrderID    string
	Amount     decimal.Decimal
	SuccessURL string
	FailURL    string
	Card       Card
}

// Redirect is what the payer's browser must do next (usually a 3-D Secure page).
type Redirect struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Gateway starts a card payment. Failures wrap domain.ErrGatewayUnreachable or
// domain.ErrGatewayRejected.
type Gateway interface {
	Charge(ctx context.Context, req OrderRequest) (*Redirect, error)
}

// ComputeOrderHash is base64(HMAC-SHA256(secret, merchantID+terminalID+amount+orderID+failURL+successURL)).
func ComputeOrderHash(secret, merchantID, terminalID, amount, orderID, failURL, successURL string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(merchantID + terminalID + amount + orderID + failURL + successURL))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RestyGateway talks to the hosted card API over HTTP.
type RestyGateway struct {
	Client     *resty.Client
	BaseURL    string
	MerchantID string
	TerminalID string
	Secret     string
}

func NewRestyGateway(baseURL, merchantID, terminalID, secret string, timeout time.Duration) *RestyGateway {
	return &RestyGateway{
		Client:     resty.New().SetTimeout(timeout),
		BaseURL:    baseURL,
		MerchantID: merchantID,
		TerminalID: terminalID,
		Secret:     secret,
	}
}

type gatewayResponse struct {
	ResultCode    int    `json:"result_code"`
	ResultMessage string `json:"result_message"`
	RedirectURL   string `json:"redirect_url"`
	HTML          string `json:"html"`
}

func (g *RestyGateway) Charge(ctx context.Context, req OrderRequest) (*Redirect, error) {
	if g.BaseURL == "" {
		return nil, fmt.Errorf("gateway url not configured: %w", domain.ErrGatewayUnreachable)
	}
	amount := req.Amount.StringFixed(2)
	hash := ComputeOrderHash(g.Secret, g.MerchantID, g.TerminalID, amount, req.OrderID, req.FailURL, req.SuccessURL)

	var out gatewayResponse
	resp, err := g.Client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"merchant_id":  g.MerchantID,
			"terminal_id":  g.TerminalID,
			"order_id":     req.OrderID,
			"amount":       amount,
			"success_url":  req.SuccessURL,
			"fail_url":     req.FailURL,
			"card_number":  req.Card.CardNumber,
			"expiry_month": fmt.Sprintf("%02d", req.Card.ExpiryMonth),
			"expiry_year":  strconv.Itoa(req.Card.ExpiryYear),
			"cvc":          req.Card.CVC,
			"holder_name":  req.Card.HolderName,
			"hash":         hash,
		}).
		SetResult(&out).
		SetError(&out).
		Post(g.BaseURL + "/payments/3d")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout: %w", domain.ErrGatewayUnreachable)
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrGatewayUnreachable)
	}
	if resp.StatusCode() >= 500 {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode(), domain.ErrGatewayUnreachable)
	}
	if resp.IsError() || out.ResultCode <= 0 {
		msg := out.ResultMessage
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%s: %w", msg, domain.ErrGatewayRejected)
	}
	return &Redirect{URL: out.RedirectURL, HTML: out.HTML}, nil
}
