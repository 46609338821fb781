package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paypalStub struct {
	tokenCalls atomic.Int32
	orders     map[string]map[string]any
}

func (s *paypalStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		s.tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := r.URL.Path[len("/v2/checkout/orders/"):]
		o, ok := s.orders[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(o)
	})
	return mux
}

func newPayPalTest(t *testing.T, orders map[string]map[string]any) (*PayPalProvider, *paypalStub) {
	stub := &paypalStub{orders: orders}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return NewPayPalProvider(srv.URL, "client", "secret", srv.Client()), stub
}

func TestPayPalProvider_Verify_Completed(t *testing.T) {
	provider, stub := newPayPalTest(t, map[string]map[string]any{
		"ORDER-1": {
			"id":          "ORDER-1",
			"status":      "COMPLETED",
			"update_time": "2026-03-14T09:31:00Z",
			"payer":       map[string]any{"email_address": "buyer@example.com"},
		},
	})

	receipt, err := provider.Verify(context.Background(), Receipt{ID: "ORDER-1"})

	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", receipt.ID)
	assert.Equal(t, "COMPLETED", receipt.Status)
	assert.Equal(t, "2026-03-14T09:31:00Z", receipt.UpdateTime)
	assert.Equal(t, "buyer@example.com", receipt.EmailAddress)

	// token is cached
	_, err = provider.Verify(context.Background(), Receipt{ID: "ORDER-1", EmailAddress: "own@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.tokenCalls.Load())
}

func TestPayPalProvider_Verify_KeepsClientEmail(t *testing.T) {
	provider, _ := newPayPalTest(t, map[string]map[string]any{
		"ORDER-1": {"id": "ORDER-1", "status": "COMPLETED", "payer": map[string]any{"email_address": "paypal@example.com"}},
	})

	receipt, err := provider.Verify(context.Background(), Receipt{ID: "ORDER-1", EmailAddress: "own@example.com", UpdateTime: "client-time"})

	require.NoError(t, err)
	assert.Equal(t, "own@example.com", receipt.EmailAddress)
	assert.Equal(t, "client-time", receipt.UpdateTime)
}

func TestPayPalProvider_Verify_NotCompleted(t *testing.T) {
	provider, _ := newPayPalTest(t, map[string]map[string]any{
		"ORDER-1": {"id": "ORDER-1", "status": "APPROVED"},
	})

	_, err := provider.Verify(context.Background(), Receipt{ID: "ORDER-1"})

	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestPayPalProvider_Verify_UnknownOrder(t *testing.T) {
	provider, _ := newPayPalTest(t, map[string]map[string]any{})

	_, err := provider.Verify(context.Background(), Receipt{ID: "nope"})

	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestPayPalProvider_Verify_BadCredentials(t *testing.T) {
	stub := &paypalStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()
	provider := NewPayPalProvider(srv.URL, "client", "wrong", srv.Client())

	_, err := provider.Verify(context.Background(), Receipt{ID: "ORDER-1"})

	assert.ErrorIs(t, err, ErrProvider)
	assert.NotErrorIs(t, err, ErrProviderRejected)
}
