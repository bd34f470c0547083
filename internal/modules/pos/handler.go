package pos

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/modules/scanner"
	"github.com/georgemunganga/printa-terminal/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Handler exposes the terminal over HTTP.
type Handler struct {
	terminal *Terminal
	auth     *auth.Provider
	log      *zap.Logger
}

func NewHandler(terminal *Terminal, provider *auth.Provider, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{terminal: terminal, auth: provider, log: log}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Get("/catalog", h.listCatalog)           // GET    /api/v1/pos/catalog?services=&q=&category=&subcategory=
		r.Get("/catalog/taxonomy", h.taxonomy)     // GET    /api/v1/pos/catalog/taxonomy?services=
		r.Get("/cart", h.view)                     // GET    /api/v1/pos/cart
		r.Post("/cart/items", h.addItem)           // POST   /api/v1/pos/cart/items
		r.Put("/cart/items/{id}", h.setQuantity)   // PUT    /api/v1/pos/cart/items/{id}
		r.Delete("/cart/items/{id}", h.removeItem) // DELETE /api/v1/pos/cart/items/{id}
		r.Delete("/cart", h.clearCart)             // DELETE /api/v1/pos/cart
		r.Put("/cart/discount", h.setDiscount)     // PUT    /api/v1/pos/cart/discount
		r.Put("/cart/tax-rate", h.setTaxRate)      // PUT    /api/v1/pos/cart/tax-rate

		r.Put("/customer", h.attachCustomer)           // PUT    /api/v1/pos/customer
		r.Delete("/customer", h.detachCustomer)        // DELETE /api/v1/pos/customer
		r.Post("/customer/walk-in", h.attachWalkIn)    // POST   /api/v1/pos/customer/walk-in
		r.Get("/customers/search", h.searchCustomers)  // GET    /api/v1/pos/customers/search?q=
		r.Post("/customers/query", h.queryCustomers)   // POST   /api/v1/pos/customers/query
		r.Get("/customers/results", h.customerResults) // GET    /api/v1/pos/customers/results
		r.Post("/customers", h.createCustomer)         // POST   /api/v1/pos/customers

		r.Get("/checkout", h.checkoutState)                     // GET    /api/v1/pos/checkout
		r.Post("/checkout/begin", h.beginCheckout)              // POST   /api/v1/pos/checkout/begin
		r.Post("/checkout/confirm-customer", h.confirmCustomer) // POST   /api/v1/pos/checkout/confirm-customer
		r.Post("/checkout/method", h.selectMethod)              // POST   /api/v1/pos/checkout/method
		r.Post("/checkout/cash", h.submitCash)                  // POST   /api/v1/pos/checkout/cash
		r.Post("/checkout/back", h.back)                        // POST   /api/v1/pos/checkout/back
		r.Post("/checkout/cancel", h.cancel)                    // POST   /api/v1/pos/checkout/cancel

		r.Post("/keys", h.handleKey)         // POST   /api/v1/pos/keys
		r.Get("/settings", h.getSettings)    // GET    /api/v1/pos/settings
		r.Put("/settings", h.updateSettings) // PUT    /api/v1/pos/settings
		r.Get("/notices", h.notices)         // GET    /api/v1/pos/notices

		r.Post("/auth/login", h.login)         // POST   /api/v1/pos/auth/login
		r.Post("/auth/anonymous", h.anonymous) // POST   /api/v1/pos/auth/anonymous
		r.Post("/auth/restore", h.restore)     // POST   /api/v1/pos/auth/restore
		r.Post("/auth/logout", h.logout)       // POST   /api/v1/pos/auth/logout
	})
}

// ── catalog ───────────────────────────────────────────────────────────────────

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := h.terminal.catalog.Filter(catalog.Filter{
		Services:    cast.ToBool(q.Get("services")),
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
	})
	respond(w, http.StatusOK, items)
}

func (h *Handler) taxonomy(w http.ResponseWriter, r *http.Request) {
	if cast.ToBool(r.URL.Query().Get("services")) {
		respond(w, http.StatusOK, h.terminal.catalog.ServiceTaxonomy())
		return
	}
	respond(w, http.StatusOK, h.terminal.catalog.Taxonomy())
}

// ── cart ──────────────────────────────────────────────────────────────────────

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.terminal.View())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.afterMutation(w, h.terminal.AddItem(req.ItemID))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.afterMutation(w, h.terminal.SetQuantity(chi.URLParam(r, "id"), req.Quantity))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.RemoveItem(chi.URLParam(r, "id")))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.ClearCart())
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.afterMutation(w, h.terminal.SetDiscount(req.Amount))
}

func (h *Handler) setTaxRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.afterMutation(w, h.terminal.SetTaxRate(req.Rate))
}

// ── customer ──────────────────────────────────────────────────────────────────

func (h *Handler) attachCustomer(w http.ResponseWriter, r *http.Request) {
	var ref customer.Reference
	if !h.decode(w, r, &ref) {
		return
	}
	h.afterMutation(w, h.terminal.AttachCustomer(ref))
}

func (h *Handler) detachCustomer(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.DetachCustomer())
}

func (h *Handler) attachWalkIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	_, err := h.terminal.AttachWalkIn(req.Name)
	h.afterMutation(w, err)
}

func (h *Handler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	found, err := h.terminal.SearchCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, found)
}

func (h *Handler) queryCustomers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.terminal.QueryCustomers(req.Query)
	respond(w, http.StatusAccepted, h.terminal.CustomerResults())
}

func (h *Handler) customerResults(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.terminal.CustomerResults())
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customer.NewCustomer
	if !h.decode(w, r, &req) {
		return
	}
	ref, err := h.terminal.CreateCustomer(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, ref)
}

// ── checkout ──────────────────────────────────────────────────────────────────

func (h *Handler) checkoutState(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"state":     h.terminal.CheckoutState(),
		"in_flight": h.terminal.machine.InFlight(),
	})
}

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.BeginCheckout())
}

func (h *Handler) confirmCustomer(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.ConfirmCustomer())
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.BackToMethods())
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.afterMutation(w, h.terminal.CancelCheckout())
}

func (h *Handler) selectMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	method, err := checkout.ParseMethod(req.Method)
	if err != nil {
		h.fail(w, err)
		return
	}
	out, err := h.terminal.SelectMethod(r.Context(), method)
	h.afterCheckout(w, out, err)
}

func (h *Handler) submitCash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tendered string `json:"tendered"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.terminal.SubmitCash(r.Context(), req.Tendered)
	h.afterCheckout(w, out, err)
}

func (h *Handler) afterCheckout(w http.ResponseWriter, out *checkout.Outcome, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	if out == nil {
		respond(w, http.StatusOK, h.terminal.View())
		return
	}
	body := map[string]interface{}{"sale_id": out.SaleID, "sale": out.Sale}
	if change, ok := out.Change(); ok {
		body["change"] = change
	}
	if out.ReceiptErr != nil {
		body["receipt_error"] = out.ReceiptErr.Error()
	}
	respond(w, http.StatusCreated, body)
}

// ── keys, settings, notices ───────────────────────────────────────────────────

func (h *Handler) handleKey(w http.ResponseWriter, r *http.Request) {
	var ev scanner.KeyEvent
	if !h.decode(w, r, &ev) {
		return
	}
	respond(w, http.StatusOK, h.terminal.HandleKey(ev))
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.terminal.Settings())
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutoWalkIn     *bool    `json:"auto_walk_in"`
		DefaultTaxRate *float64 `json:"default_tax_rate"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.DefaultTaxRate != nil {
		if err := h.terminal.SetDefaultTaxRate(*req.DefaultTaxRate); err != nil {
			h.fail(w, err)
			return
		}
	}
	if req.AutoWalkIn != nil {
		if err := h.terminal.SetAutoWalkIn(*req.AutoWalkIn); err != nil {
			h.fail(w, err)
			return
		}
	}
	respond(w, http.StatusOK, h.terminal.Settings())
}

func (h *Handler) notices(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.terminal.Notices())
}

// ── auth ──────────────────────────────────────────────────────────────────────

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) anonymous(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.SignInAnonymous()
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.auth.Authenticate(req.Token)
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, id)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) afterMutation(w http.ResponseWriter, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, h.terminal.View())
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	respond(w, code, map[string]string{"error": OperatorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrInsufficientTender):
		return http.StatusUnprocessableEntity
	case errors.Is(err, customer.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrTenderRequired),
		errors.Is(err, checkout.ErrInvalidMethod),
		errors.Is(err, cart.ErrNegativeDiscount),
		errors.Is(err, cart.ErrNegativeTaxRate),
		errors.Is(err, settings.ErrNegativeTaxRate),
		errors.Is(err, customer.ErrNameRequired),
		errors.Is(err, customer.ErrPhoneRequired):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
