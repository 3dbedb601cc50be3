package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"certhub-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOrderHash(t *testing.T) {
	got := ComputeOrderHash("secret", "M1", "T1", "150.00", "DEPabc", "https://x/fail", "https://x/ok")
	assert.Equal(t, "8bkh90kQTaY/VS14dQjQ7kyCGwdaPjwdFSZMvRRPMfw=", got)
	assert.NotEqual(t, got, ComputeOrderHash("secret", "M1", "T1", "150.01", "DEPabc", "https://x/fail", "https://x/ok"))
}

func TestRestyGateway_SendsSignedOrder(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result_code": 1, "redirect_url": "https://bank/3d"})
	}))
	defer srv.Close()

	g := NewRestyGateway(srv.URL, "M1", "T1", "secret", time.Second)
	red, err := g.Charge(context.Background(), OrderRequest{
		OrderID: "DEPabc", Amount: decimal.RequireFromString("150"), SuccessURL: "https://x/ok", FailURL: "https://x/fail", Card: validCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://bank/3d", red.URL)
	assert.Equal(t, "150.00", form["amount"])
	assert.Equal(t, "12", form["expiry_month"])
	assert.Equal(t, "8bkh90kQTaY/VS14dQjQ7kyCGwdaPjwdFSZMvRRPMfw=", form["hash"])
}

func TestRestyGateway_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result_code": -3, "result_message": "card declined"})
	}))
	defer srv.Close()

	g := NewRestyGateway(srv.URL, "M1", "T1", "secret", time.Second)
	_, err := g.Charge(context.Background(), OrderRequest{OrderID: "DEPabc", Amount: decimal.NewFromInt(1), Card: validCard()})
	assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "card declined")
}

func TestRestyGateway_TimeoutIsUnreachable(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	g := NewRestyGateway(srv.URL, "M1", "T1", "secret", 50*time.Millisecond)
	_, err := g.Charge(context.Background(), OrderRequest{OrderID: "DEPabc", Amount: decimal.NewFromInt(1), Card: validCard()})
	assert.ErrorIs(t, err, domain.ErrGatewayUnreachable)
}

func TestRestyGateway_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewRestyGateway(srv.URL, "M1", "T1", "secret", time.Second)
	_, err := g.Charge(context.Background(), OrderRequest{OrderID: "DEPabc", Amount: decimal.NewFromInt(1), Card: validCard()})
	assert.ErrorIs(t, err, domain.ErrGatewayUnreachable)
}
