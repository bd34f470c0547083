package pos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type operatorRepo struct{ op *auth.Operator }

func (r operatorRepo) GetOperatorByEmail(_ context.Context, email string) (*auth.Operator, error) {
	if r.op == nil || email != r.op.Email {
		return nil, auth.ErrInvalidCredentials
	}
	return r.op, nil
}

func newTestRouter(t *testing.T, initial settings.Settings) (*chi.Mux, *env) {
	e := newEnv(t, initial)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	provider := auth.NewProvider(operatorRepo{op: &auth.Operator{
		ID: uuid.New(), Email: "clerk@store.test", PasswordHash: string(hash),
	}}, "secret", nil)

	r := chi.NewRouter()
	NewHandler(e.terminal, provider, nil).RegisterRoutes(r)
	return r, e
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestHandler_CatalogAndTaxonomy(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	rec := do(t, r, http.MethodGet, "/api/v1/pos/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]interface{}
	decodeBody(t, rec, &items)
	assert.Len(t, items, 2)

	rec = do(t, r, http.MethodGet, "/api/v1/pos/catalog?services=true", "")
	decodeBody(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "fix", items[0]["id"])

	rec = do(t, r, http.MethodGet, "/api/v1/pos/catalog/taxonomy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tax []map[string]interface{}
	decodeBody(t, rec, &tax)
	assert.Equal(t, "All", tax[0]["name"])
}

func TestHandler_CartFlowAndCashCheckout(t *testing.T) {
	r, e := newTestRouter(t, settings.Settings{AutoWalkIn: true})

	for _, id := range []string{"a", "a", "b"} {
		rec := do(t, r, http.MethodPost, "/api/v1/pos/cart/items", `{"item_id":"`+id+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/api/v1/pos/cart/discount", `{"amount":1}`).Code)
	rec := do(t, r, http.MethodPut, "/api/v1/pos/cart/tax-rate", `{"rate":0.08}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var view View
	decodeBody(t, rec, &view)
	assert.InDelta(t, 11.34, view.Totals.Total, 1e-9)
	require.NotNil(t, view.Customer)
	assert.Equal(t, "walk-in", view.Customer.ID)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/pos/checkout/begin", "").Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/pos/checkout/method", `{"method":"cash"}`).Code)

	rec = do(t, r, http.MethodPost, "/api/v1/pos/checkout/cash", `{"tendered":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/pos/checkout/cash", `{"tendered":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/pos/checkout/cash", `{"tendered":"20"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]interface{}
	decodeBody(t, rec, &out)
	assert.Equal(t, "sale-1", out["sale_id"])
	assert.InDelta(t, 8.66, out["change"], 1e-9)
	assert.Len(t, e.ledger.sales, 1)

	rec = do(t, r, http.MethodGet, "/api/v1/pos/cart", "")
	decodeBody(t, rec, &view)
	assert.Empty(t, view.Lines)
}

func TestHandler_ErrorStatuses(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/api/v1/pos/cart/items", `{"item_id":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/pos/cart/items", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPut, "/api/v1/pos/cart/discount", `{"amount":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/pos/checkout/begin", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/api/v1/pos/checkout/back", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/pos/checkout/method", `{"method":"cheque"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/pos/customers", `{"name":"Ada"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/api/v1/pos/auth/login", `{"email":"clerk@store.test","password":"nope"}`).Code)
}

func TestHandler_Customers(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	rec := do(t, r, http.MethodGet, "/api/v1/pos/customers/search?q=ad", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []map[string]interface{}
	decodeBody(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada", found[0]["name"])

	rec = do(t, r, http.MethodPost, "/api/v1/pos/customers", `{"name":"Ada","phone":"555"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/pos/customer/walk-in", `{"name":"Dana"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	decodeBody(t, rec, &view)
	assert.Equal(t, "Walk-In - Dana", view.Customer.Name)

	rec = do(t, r, http.MethodDelete, "/api/v1/pos/customer", "")
	decodeBody(t, rec, &view)
	assert.Nil(t, view.Customer)
}

func TestHandler_KeysSettingsNotices(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	for _, k := range []string{"1", "1", "1"} {
		rec := do(t, r, http.MethodPost, "/api/v1/pos/keys", `{"key":"`+k+`","target":"search"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var a map[string]bool
		decodeBody(t, rec, &a)
		assert.True(t, a["suppress"])
		assert.True(t, a["blur_search"])
	}
	do(t, r, http.MethodPost, "/api/v1/pos/keys", `{"key":"Enter"}`)

	rec := do(t, r, http.MethodGet, "/api/v1/pos/cart", "")
	var view View
	decodeBody(t, rec, &view)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "a", view.Lines[0].Item.ID)

	rec = do(t, r, http.MethodPut, "/api/v1/pos/settings", `{"auto_walk_in":true,"default_tax_rate":0.05}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var s settings.Settings
	decodeBody(t, rec, &s)
	assert.Equal(t, settings.Settings{AutoWalkIn: true, DefaultTaxRate: 0.05}, s)

	rec = do(t, r, http.MethodGet, "/api/v1/pos/notices", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Auth(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	rec := do(t, r, http.MethodPost, "/api/v1/pos/auth/login", `{"email":"clerk@store.test","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok map[string]string
	decodeBody(t, rec, &tok)
	require.NotEmpty(t, tok["token"])

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/v1/pos/auth/logout", "").Code)

	rec = do(t, r, http.MethodPost, "/api/v1/pos/auth/restore", `{"token":"`+tok["token"]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var id auth.Identity
	decodeBody(t, rec, &id)
	assert.Equal(t, "clerk@store.test", id.Email)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/api/v1/pos/auth/restore", `{"token":"junk"}`).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/pos/auth/anonymous", "").Code)
}

func TestHandler_OperatorWording(t *testing.T) {
	r, _ := newTestRouter(t, settings.Settings{})

	rec := do(t, r, http.MethodPost, "/api/v1/pos/checkout/begin", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Cart is empty!", body["error"])
}

func TestHandler_CustomerDirectoryOutage(t *testing.T) {
	r, e := newTestRouter(t, settings.Settings{})
	e.directory.err = errors.New("connection refused")

	rec := do(t, r, http.MethodGet, "/api/v1/pos/customers/search?q=ada", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/pos/notices", "")
	var notices []Notice
	decodeBody(t, rec, &notices)
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeDirectoryDown, notices[0].Kind)
}

func TestHandler_DebouncedCustomerQuery(t *testing.T) {
	r, e := newTestRouter(t, settings.Settings{})

	rec := do(t, r, http.MethodPost, "/api/v1/pos/customers/query", `{"query":"ada"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var res CustomerResults
	decodeBody(t, rec, &res)
	assert.True(t, res.Pending)

	e.clock.Advance(customer.SearchDebounce)

	rec = do(t, r, http.MethodGet, "/api/v1/pos/customers/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.False(t, res.Pending)
	assert.Equal(t, "ada", res.Query)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Ada", res.Results[0].Name)
}
