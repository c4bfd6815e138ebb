package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func newTestClient(t *testing.T, cfg Config, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.APIKey == "" {
		cfg.APIKey = "sk_test_123"
	}
	cfg.BaseURL = srv.URL
	c, err := New(cfg, rest.WithRateLimiter(nil))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestCustomers_CreateSendsFormBody(t *testing.T) {
	var body, contentType, auth, account, version, key string
	c := newTestClient(t, Config{Account: "acct_1", Version: "2024-06-20"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customers", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		contentType = r.Header.Get("Content-Type")
		auth = r.Header.Get("Authorization")
		account = r.Header.Get(HeaderAccount)
		version = r.Header.Get(HeaderVersion)
		key = r.Header.Get(HeaderIdempotencyKey)
		writeJSON(w, http.StatusOK, map[string]any{"id": "cus_1", "object": "customer", "email": "a@b.com"})
	}))

	cus, err := c.Customers.Create(context.Background(), CustomerParams{
		Email:    "a@b.com",
		Name:     "Ada",
		Address:  &Address{City: "Paris"},
		Metadata: map[string]string{"plan": "pro"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cus_1", cus.ID)
	assert.Equal(t, "email=a%40b.com&name=Ada&address[city]=Paris&metadata[plan]=pro", body)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "Bearer sk_test_123", auth)
	assert.Equal(t, "acct_1", account)
	assert.Equal(t, "2024-06-20", version)
	assert.Len(t, key, 36)
}

func TestPost_IdempotencyKeys(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(HeaderIdempotencyKey))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"id": "in_1", "object": "invoice"})
	}))
	ctx := context.Background()

	_, err := c.Invoices.Finalize(ctx, "in_1")
	require.NoError(t, err)
	_, err = c.Invoices.Finalize(ctx, "in_1")
	require.NoError(t, err)
	_, err = c.Invoices.Pay(ctx, "in_1", WithIdempotencyKey("retry-7"))
	require.NoError(t, err)

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1])
	assert.Equal(t, "retry-7", keys[2])
}

func TestGet_NoAccountHeaderByDefault(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[HeaderAccount]
		assert.False(t, present)
		assert.Empty(t, r.Header.Get(HeaderIdempotencyKey))
		writeJSON(w, http.StatusOK, map[string]any{
			"object":    "balance",
			"available": []map[string]any{{"amount": 1200, "currency": "usd"}},
		})
	}))

	bal, err := c.Balance.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, bal.Available, 1)
	assert.Equal(t, int64(1200), bal.Available[0].Amount)
}

func TestCustomers_ListAllFollowsStartingAfter(t *testing.T) {
	var cursors []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "a@b.com", q.Get("email"))
		cursors = append(cursors, q.Get("starting_after"))

		switch q.Get("starting_after") {
		case "":
			writeJSON(w, http.StatusOK, map[string]any{
				"object": "list", "has_more": true,
				"data": []map[string]any{{"id": "cus_1"}, {"id": "cus_2"}},
			})
		case "cus_2":
			writeJSON(w, http.StatusOK, map[string]any{
				"object": "list", "has_more": false,
				"data": []map[string]any{{"id": "cus_3"}},
			})
		default:
			t.Errorf("unexpected cursor %q", q.Get("starting_after"))
		}
	}))

	all, err := c.Customers.ListAll(context.Background(), CustomerListParams{Email: "a@b.com"})
	require.NoError(t, err)

	ids := make([]string, len(all))
	for i, cus := range all {
		ids[i] = cus.ID
	}
	assert.Equal(t, []string{"cus_1", "cus_2", "cus_3"}, ids)
	assert.Equal(t, []string{"", "cus_2"}, cursors)
}

func TestCustomers_SearchAllFollowsNextPage(t *testing.T) {
	var pages []string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "name:'Ada'", q.Get("query"))
		pages = append(pages, q.Get("page"))

		if q.Get("page") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"object": "search_result", "has_more": true, "next_page": "pg_2",
				"data": []map[string]any{{"id": "cus_1"}},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "search_result", "has_more": false, "next_page": nil,
			"data": []map[string]any{{"id": "cus_9"}},
		})
	}))

	all, err := c.Customers.SearchAll(context.Background(), "name:'Ada'")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "cus_9", all[1].ID)
	assert.Equal(t, []string{"", "pg_2"}, pages)
}

func TestSubscriptions_CreateEncodesItems(t *testing.T) {
	var body string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		writeJSON(w, http.StatusOK, map[string]any{"id": "sub_1", "status": "active"})
	}))

	sub, err := c.Subscriptions.Create(context.Background(), SubscriptionParams{
		Customer: "cus_1",
		Items:    []SubscriptionItemParams{{Price: "price_a"}, {Price: "price_b", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "customer=cus_1&items[0][price]=price_a&items[1][price]=price_b&items[1][quantity]=2", body)
}

func TestPaymentIntents_CaptureFullAmountSendsEmptyBody(t *testing.T) {
	var body, path string
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		path = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{"id": "pi_1", "status": "succeeded"})
	}))

	pi, err := c.PaymentIntents.Capture(context.Background(), "pi_1", 0)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", pi.Status)
	assert.Equal(t, "/payment_intents/pi_1/capture", path)
	assert.Empty(t, body)
}

func TestRefunds_CreateRequiresTarget(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := c.Refunds.Create(context.Background(), RefundParams{Amount: 100})
	assert.Error(t, err)
}

func TestCustomers_GetReturnsAPIError(t *testing.T) {
	c := newTestClient(t, Config{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"code":    "resource_missing",
				"message": "No such customer: 'cus_x'",
				"type":    "invalid_request_error",
			},
		})
	}))

	_, err := c.Customers.Get(context.Background(), "cus_x")
	require.Error(t, err)
	assert.True(t, rest.IsNotFound(err))

	apiErr, ok := rest.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "stripe", apiErr.Connector)
	assert.Equal(t, "resource_missing", apiErr.Code)
	assert.Equal(t, "No such customer: 'cus_x'", apiErr.Message)
}

func TestPath_EscapesSegments(t *testing.T) {
	assert.Equal(t, "/customers/a%2Fb", path("customers", "a/b"))
	assert.Equal(t, "/invoices/in_1/pay", path("invoices", "in_1", "pay"))
}
