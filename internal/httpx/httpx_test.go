package httpx_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgesalomon/umarket2/internal/auth"
	"github.com/georgesalomon/umarket2/internal/auth/authtest"
	"github.com/georgesalomon/umarket2/internal/httpx"
	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/service"
	"github.com/georgesalomon/umarket2/internal/store"
	"github.com/georgesalomon/umarket2/internal/store/storetest"
)

type harness struct {
	srv *httptest.Server
	mem *storetest.Memory
}

func newHarness(t *testing.T, origins ...string) harness {
	t.Helper()
	mem := storetest.NewMemory(market.Catalog)
	svc := service.New(&store.Repo{Backend: mem, Schema: market.Catalog})
	srv := serve(t, svc, origins...)
	return harness{srv: srv, mem: mem}
}

func serve(t *testing.T, svc *service.Service, origins ...string) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := auth.NewVerifier(authtest.Secret)

	r := httpx.NewRouter(log, origins)
	(&httpx.ListingsHandler{Service: svc, Auth: verifier}).Register(r)
	(&httpx.OrdersHandler{Service: svc, Auth: verifier}).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, user string) string {
	return authtest.Token(t, authtest.Secret, user, time.Hour)
}

// call sends body as JSON and decodes the JSON response into out when
// out is non-nil.
func (h harness) call(t *testing.T, method, path, tok string, body, out any) *http.Response {
	t.Helper()
	return call(t, h.srv, method, path, tok, body, out)
}

func call(t *testing.T, srv *httptest.Server, method, path, tok string, body, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (h harness) createListing(t *testing.T, seller string, quantity int) string {
	t.Helper()
	var l map[string]any
	resp := h.call(t, http.MethodPost, "/listings", token(t, seller),
		map[string]any{"name": "Desk", "price": 25.5, "quantity": quantity}, &l)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return market.Stringify(l["id"])
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, err := h.srv.Client().Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	expired := authtest.Token(t, authtest.Secret, "u", -time.Hour)
	forged := authtest.Token(t, "another-secret-that-is-long-enough!!", "u", time.Hour)

	for name, tok := range map[string]string{"missing": "", "expired": expired, "forged": forged} {
		t.Run(name, func(t *testing.T) {
			var e map[string]any
			resp := h.call(t, http.MethodPost, "/listings", tok, map[string]any{"name": "x", "price": 1}, &e)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.NotEmpty(t, e["error"])
		})
	}
	resp := h.call(t, http.MethodGet, "/orders", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, h.mem.TotalCalls())
}

func TestListings(t *testing.T) {
	h := newHarness(t)
	id := h.createListing(t, "alice", 2)

	var got map[string]any
	resp := h.call(t, http.MethodGet, "/listings/"+id, "", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Desk", got["name"])
	assert.Equal(t, 25.5, got["price"])
	assert.Equal(t, false, got["sold"])
	assert.Equal(t, "alice", got["seller_id"])
	assert.Equal(t, market.DefaultCategory, got["category"])

	var list []map[string]any
	resp = h.call(t, http.MethodGet, "/listings?seller_id=alice&sold=false", "", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 1)

	resp = h.call(t, http.MethodGet, "/listings?sold=maybe", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.call(t, http.MethodGet, "/listings/999", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateListing_Unprocessable(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "alice")

	var e map[string]any
	resp := h.call(t, http.MethodPost, "/listings", tok, map[string]any{"name": "x", "price": 0}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "price", e["field"])

	resp = h.call(t, http.MethodPost, "/listings", tok, `{"name": "x", "price": `, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.call(t, http.MethodPost, "/listings", tok, map[string]any{"name": "x", "price": 3, "quantity": -1}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	for _, body := range []string{`{"name": "x", "price": 1e309}`, `{"name": "x", "price": 0.004}`} {
		e = nil
		resp = h.call(t, http.MethodPost, "/listings", tok, body, &e)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
		assert.Equal(t, "price", e["field"], body)
	}
	assert.Zero(t, h.mem.Calls(storetest.OpInsert))
}

func TestEditAndDeleteListing(t *testing.T) {
	h := newHarness(t)
	id := h.createListing(t, "alice", 1)

	resp := h.call(t, http.MethodPatch, "/listings/"+id, token(t, "mallory"), map[string]any{"price": 1}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = h.call(t, http.MethodDelete, "/listings/"+id, token(t, "mallory"), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var got map[string]any
	resp = h.call(t, http.MethodPatch, "/listings/"+id, token(t, "alice"), map[string]any{"price": "19.99", "category": "decor"}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 19.99, got["price"])
	assert.Equal(t, "decor", got["category"])

	resp = h.call(t, http.MethodPatch, "/listings/"+id, token(t, "alice"), map[string]any{"category": "weapons"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.call(t, http.MethodDelete, "/listings/"+id, token(t, "alice"), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.call(t, http.MethodDelete, "/listings/"+id, token(t, "alice"), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrders(t *testing.T) {
	h := newHarness(t)
	id := h.createListing(t, "alice", 1)

	var e map[string]any
	resp := h.call(t, http.MethodPost, "/orders", token(t, "alice"), map[string]any{"listing_id": id}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cannot purchase own listing", e["error"])

	resp = h.call(t, http.MethodPost, "/orders", token(t, "bob"), map[string]any{"listing_id": "404"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var o map[string]any
	resp = h.call(t, http.MethodPost, "/orders", token(t, "bob"), `{"listing_id": `+id+`, "payment_method": "cash"}`, &o)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "bob", o["buyer_id"])
	assert.Equal(t, "alice", o["seller_id"])
	orderID := market.Stringify(o["id"])

	e = nil
	resp = h.call(t, http.MethodPost, "/orders", token(t, "carol"), map[string]any{"listing_id": id}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already sold", e["error"])

	var listing map[string]any
	h.call(t, http.MethodGet, "/listings/"+id, "", nil, &listing)
	assert.Equal(t, true, listing["sold"])
	assert.Equal(t, 0.0, listing["quantity"])

	var sold []map[string]any
	resp = h.call(t, http.MethodGet, "/orders?role=seller", token(t, "alice"), nil, &sold)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, sold, 1)
	assert.Equal(t, orderID, market.Stringify(sold[0]["id"]))

	resp = h.call(t, http.MethodGet, "/orders?role=admin", token(t, "alice"), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.call(t, http.MethodPatch, "/orders/"+orderID, token(t, "bob"), map[string]any{"status": "accepted"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = h.call(t, http.MethodPatch, "/orders/"+orderID, token(t, "carol"), map[string]any{"payment_method": "card"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	o = nil
	resp = h.call(t, http.MethodPatch, "/orders/"+orderID, token(t, "alice"), map[string]any{"status": "accepted"}, &o)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "accepted", o["status"])

	resp = h.call(t, http.MethodPatch, "/orders/"+orderID, token(t, "alice"), map[string]any{"status": "declined"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = h.call(t, http.MethodPatch, "/orders/999", token(t, "alice"), map[string]any{"status": "declined"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreFailures(t *testing.T) {
	h := newHarness(t)
	h.mem.FailNext(storetest.OpSelect, &store.StoreError{Op: "select", Table: "Product", Status: 503, Body: "upstream down"})

	var e map[string]any
	resp := h.call(t, http.MethodGet, "/listings", "", nil, &e)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 503.0, e["store_status"])
	assert.NotContains(t, e["error"], "upstream down")

	unconfigured := serve(t, service.New(&store.Repo{Schema: market.Catalog}))
	resp = call(t, unconfigured, http.MethodGet, "/listings", "", nil, &e)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, store.ErrNotConfigured.Error(), e["error"])
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)

	var ns []map[string]any
	resp := h.call(t, http.MethodGet, "/notifications?limit=5", token(t, "alice"), nil, &ns)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, ns)

	resp = h.call(t, http.MethodGet, "/notifications?limit=abc", token(t, "alice"), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	h := newHarness(t, "https://umarket.example")
	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/listings", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://umarket.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://umarket.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
