package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	billingapp "github.com/shopvn-labs/commerce-core/internal/application/billing"
	cartapp "github.com/shopvn-labs/commerce-core/internal/application/cart"
	inventoryapp "github.com/shopvn-labs/commerce-core/internal/application/inventory"
	orderapp "github.com/shopvn-labs/commerce-core/internal/application/order"
	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
	domcart "github.com/shopvn-labs/commerce-core/internal/domain/cart"
	dominventory "github.com/shopvn-labs/commerce-core/internal/domain/inventory"
	domorder "github.com/shopvn-labs/commerce-core/internal/domain/order"
	"github.com/shopvn-labs/commerce-core/internal/observability"
)

const (
	headerCustomerID = "X-Customer-ID"
	headerGuestToken = "X-Guest-Token"
)

// Handler exposes the commerce core over JSON. Identity comes from headers;
// authentication proper sits in front of this service.
type Handler struct {
	inventory *inventoryapp.Service
	carts     *cartapp.Service
	orders    *orderapp.Service
	billing   *billingapp.Service
}

func NewHandler(inventory *inventoryapp.Service, carts *cartapp.Service, orders *orderapp.Service, billing *billingapp.Service) *Handler {
	return &Handler{inventory: inventory, carts: carts, orders: orders, billing: billing}
}

// NewRouter assembles the full route tree with metrics exposed at
// /metrics via the supplied handler.
func NewRouter(h *Handler, tel observability.Observability, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Observe(tel))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Post("/items", h.addCartItem)
		r.Patch("/items", h.updateCartItem)
		r.Delete("/items", h.removeCartItem)
		r.Post("/merge", h.mergeCart)
		r.Get("/validate", h.validateCart)
		r.Delete("/", h.clearCart)
	})

	r.Post("/checkout", h.checkout)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Get("/number/{number}", h.getOrderByNumber)
		r.Post("/{id}/pay", h.payOrder)
		r.Post("/{id}/confirm", h.confirmOrder)
		r.Post("/{id}/ship", h.shipOrder)
		r.Post("/{id}/complete", h.completeOrder)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Post("/{id}/refund", h.refundOrder)
		r.Get("/{id}/transactions", h.listTransactions)
	})

	r.Post("/payments/{gateway}/callback", h.paymentCallback)

	r.Route("/inventory", func(r chi.Router) {
		r.Post("/stock", h.createStock)
		r.Get("/{sku}", h.getStock)
		r.Get("/{sku}/movements", h.listMovements)
		r.Post("/{sku}/receive", h.receiveStock)
		r.Post("/{sku}/adjust", h.adjustStock)
		r.Post("/{sku}/return", h.returnStock)
	})

	return r
}

// --- cart ---

func owner(r *http.Request) cartapp.Owner {
	return cartapp.Owner{
		CustomerID: r.Header.Get(headerCustomerID),
		GuestToken: r.Header.Get(headerGuestToken),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), owner(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

type addItemRequest struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit_price")
		return
	}
	c, err := h.carts.AddItem(r.Context(), cartapp.AddItemInput{
		Owner:     owner(r),
		SKU:       req.SKU,
		Quantity:  req.Quantity,
		UnitPrice: price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

type updateItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.carts.UpdateItem(r.Context(), owner(r), req.SKU, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sku := r.URL.Query().Get("sku")
	if sku == "" {
		writeError(w, http.StatusBadRequest, "sku query parameter is required")
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), owner(r), sku)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), owner(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	GuestToken string `json:"guest_token"`
}

func (h *Handler) mergeCart(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	customerID := r.Header.Get(headerCustomerID)
	result, err := h.carts.Merge(r.Context(), req.GuestToken, customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cart":     cartView(result.Cart),
		"outcomes": result.Outcomes,
	})
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	issues, err := h.carts.ValidateStock(r.Context(), owner(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if issues == nil {
		issues = []cartapp.StockIssue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

// --- checkout and orders ---

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	ShippingAddr  string `json:"shipping_address"`
	Note          string `json:"note"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.orders.Checkout(r.Context(), orderapp.CheckoutInput{
		CustomerID:    r.Header.Get(headerCustomerID),
		PaymentMethod: domorder.PaymentMethod(req.PaymentMethod),
		ShippingAddr:  req.ShippingAddr,
		Note:          req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByCustomer(r.Context(), r.Header.Get(headerCustomerID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	intent, err := h.billing.InitiatePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reference":   intent.Reference,
		"payment_url": intent.PaymentURL,
	})
}

type shipRequest struct {
	TrackingCode string `json:"tracking_code"`
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.orders.Ship(r.Context(), chi.URLParam(r, "id"), req.TrackingCode); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Confirm(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}
	txn, err := h.billing.Refund(r.Context(), billingapp.RefundInput{
		OrderID: chi.URLParam(r, "id"),
		Amount:  amount,
		Reason:  req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txnView(txn))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.billing.ListByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(txns))
	for _, t := range txns {
		views = append(views, txnView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

// --- payments ---

type callbackRequest struct {
	OrderID   string            `json:"order_id"`
	Reference string            `json:"reference"`
	Amount    string            `json:"amount"`
	Currency  string            `json:"currency"`
	Success   bool              `json:"success"`
	FailCode  string            `json:"fail_code"`
	Signature string            `json:"signature"`
	Raw       map[string]string `json:"raw"`
}

func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	txn, err := h.billing.HandleCallback(r.Context(), dombilling.Callback{
		Gateway:   dombilling.Gateway(chi.URLParam(r, "gateway")),
		OrderID:   req.OrderID,
		Reference: req.Reference,
		Amount:    amount,
		Currency:  req.Currency,
		Success:   req.Success,
		FailCode:  req.FailCode,
		Signature: req.Signature,
		Raw:       req.Raw,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txnView(txn))
}

// --- inventory ---

type createStockRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) createStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.inventory.CreateStock(r.Context(), req.SKU, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stockView(item))
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockView(item))
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.inventory.Movements(r.Context(), chi.URLParam(r, "sku"), 100)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}

type stockChangeRequest struct {
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	h.stockChange(w, r, h.inventory.AddStock)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	h.stockChange(w, r, h.inventory.AdjustStock)
}

func (h *Handler) returnStock(w http.ResponseWriter, r *http.Request) {
	h.stockChange(w, r, h.inventory.ProcessReturn)
}

func (h *Handler) stockChange(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, sku string, qty int, reference string) error) {
	var req stockChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sku := chi.URLParam(r, "sku")
	if err := op(r.Context(), sku, req.Quantity, req.Reference); err != nil {
		writeDomainError(w, err)
		return
	}
	item, err := h.inventory.Get(r.Context(), sku)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockView(item))
}

// --- views ---

func cartView(c *domcart.Cart) map[string]any {
	lines := make([]map[string]any, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, map[string]any{
			"sku":        l.SKU,
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.String(),
			"subtotal":   l.Subtotal().String(),
		})
	}
	return map[string]any{
		"id":          c.ID,
		"customer_id": c.CustomerID,
		"lines":       lines,
		"total_items": c.TotalItems(),
		"subtotal":    c.Subtotal().String(),
	}
}

func orderView(o *domorder.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"sku":        it.SKU,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice.String(),
			"subtotal":   it.Subtotal().String(),
		})
	}
	return map[string]any{
		"id":             o.ID,
		"number":         o.Number,
		"customer_id":    o.CustomerID,
		"status":         string(o.Status),
		"payment_method": string(o.PaymentMethod),
		"items":          items,
		"subtotal":       o.Subtotal.String(),
		"shipping_fee":   o.ShippingFee.String(),
		"total":          o.Total.String(),
		"currency":       o.Currency,
		"paid":           o.Paid,
		"tracking_code":  o.TrackingCode,
		"created_at":     o.CreatedAt.Format(time.RFC3339),
	}
}

func stockView(item *dominventory.StockItem) map[string]any {
	return map[string]any{
		"sku":       item.SKU,
		"warehouse": item.Warehouse,
		"quantity":  item.Quantity,
		"reserved":  item.Reserved,
		"available": item.Available(),
		"status":    string(item.Status()),
		"halted":    item.Halted,
	}
}

func txnView(t *dombilling.Transaction) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"order_id":    t.OrderID,
		"gateway":     string(t.Gateway),
		"reference":   t.Reference,
		"kind":        string(t.Kind),
		"status":      string(t.Status),
		"amount":      t.Amount.String(),
		"currency":    t.Currency,
		"recorded_at": t.RecordedAt.Format(time.RFC3339),
	}
}

// --- plumbing ---

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError translates domain failures to HTTP statuses without
// leaking internals; unknown errors become a plain 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dominventory.ErrNotFound),
		errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcart.ErrLineNotFound),
		errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dombilling.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dominventory.ErrInsufficientStock),
		errors.Is(err, domorder.ErrInvalidStateTransition),
		errors.Is(err, orderapp.ErrStockIssues),
		errors.Is(err, billingapp.ErrNotPayable),
		errors.Is(err, dominventory.ErrLedgerCorrupt):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dombilling.ErrRefundExceedsCaptured),
		errors.Is(err, dombilling.ErrNothingCaptured),
		errors.Is(err, billingapp.ErrRefundUnsupported):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, dombilling.ErrSignatureMismatch):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domcart.ErrExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, dominventory.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, dombilling.ErrInvalidAmount),
		errors.Is(err, dombilling.ErrUnknownGateway),
		errors.Is(err, cartapp.ErrOwnerRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
