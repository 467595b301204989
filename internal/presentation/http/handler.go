package httppresentation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apporder "github.com/lumimart/checkout/internal/application/order"
	apppayment "github.com/lumimart/checkout/internal/application/payment"
	domorder "github.com/lumimart/checkout/internal/domain/order"
	dompayment "github.com/lumimart/checkout/internal/domain/payment"
	"github.com/lumimart/checkout/internal/pkg/errcode"
	"github.com/lumimart/checkout/internal/pkg/metrics"
)

const headerUserID = "X-User-ID"

type Handler struct {
	orders   *apporder.Service
	payments *apppayment.Service
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewHandler(orders *apporder.Service, payments *apppayment.Service, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orders:   orders,
		payments: payments,
		log:      logger.With(zap.String("component", "http_server")),
		metrics:  m,
	}
}

// Router wires every route behind the trace, metrics and access-log
// middlewares. The route pattern, not the raw path, feeds metric labels.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.withTrace, h.withHTTPMetrics, h.withAccessLog)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handleCreateOrder)
		r.Get("/", h.handleListOrders)
		r.Get("/{orderNo}", h.handleGetOrder)
		r.Put("/{orderNo}/cancel", h.handleCancelOrder)
		r.Put("/{orderNo}/ship", h.handleMarkShipped)
		r.Put("/{orderNo}/receipt", h.handleConfirmReceipt)
		r.Put("/{orderNo}/close", h.handleCloseOrder)
	})

	r.Route("/pay", func(r chi.Router) {
		r.Post("/", h.handleCreateIntent)
		r.Get("/{orderNo}", h.handleQueryPayStatus)
		r.Post("/notify", h.handlePaymentNotify)
	})

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	return r
}

type itemResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type orderResponse struct {
	OrderNo    int64           `json:"order_no"`
	UserID     int64           `json:"user_id"`
	ShippingID int64           `json:"shipping_id"`
	Payment    decimal.Decimal `json:"payment"`
	Postage    decimal.Decimal `json:"postage"`
	Status     string          `json:"status"`
	Items      []itemResponse  `json:"items"`
	CreatedAt  string          `json:"created_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	resp := orderResponse{
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		ShippingID: o.ShippingID,
		Payment:    o.Payment,
		Postage:    o.Postage,
		Status:     string(o.Status),
		Items:      make([]itemResponse, 0, len(o.Items)),
		CreatedAt:  o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			TotalPrice:  it.TotalPrice,
		})
	}
	return resp
}

type createOrderRequest struct {
	ShippingID int64 `json:"shipping_id"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errcode.ErrValidation, err))
		return
	}

	ord, err := h.orders.CreateOrder(r.Context(), userID, req.ShippingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(ord))
}

type listOrdersResponse struct {
	Orders   []orderResponse `json:"orders"`
	Total    int             `json:"total"`
	PageNum  int             `json:"page_num"`
	PageSize int             `json:"page_size"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	pageNum := queryInt(r, "page_num", 1)
	pageSize := queryInt(r, "page_size", 10)

	page, err := h.orders.ListOrders(r.Context(), userID, pageNum, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listOrdersResponse{
		Orders:   make([]orderResponse, 0, len(page.Orders)),
		Total:    page.Total,
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
	}
	for _, o := range page.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ord, err := h.orders.GetOrderDetail(r.Context(), userID, orderNo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(ord))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.orders.CancelOrder(r.Context(), userID, orderNo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domorder.StatusCanceled)})
}

func (h *Handler) handleMarkShipped(w http.ResponseWriter, r *http.Request) {
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orders.MarkShipped(r.Context(), orderNo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domorder.StatusShipped)})
}

func (h *Handler) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orders.ConfirmReceipt(r.Context(), userID, orderNo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domorder.StatusCompleted)})
}

func (h *Handler) handleCloseOrder(w http.ResponseWriter, r *http.Request) {
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orders.CloseOrder(r.Context(), orderNo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domorder.StatusClosed)})
}

type createIntentRequest struct {
	OrderNo  int64 `json:"order_no"`
	Platform int   `json:"platform"`
}

type payInfoResponse struct {
	OrderNo        int64           `json:"order_no"`
	Platform       string          `json:"platform"`
	PlatformNumber string          `json:"platform_number,omitempty"`
	PlatformStatus string          `json:"platform_status"`
	PayAmount      decimal.Decimal `json:"pay_amount"`
}

func toPayInfoResponse(p *dompayment.PayInfo) payInfoResponse {
	return payInfoResponse{
		OrderNo:        p.OrderNo,
		Platform:       p.Platform.String(),
		PlatformNumber: p.PlatformNumber,
		PlatformStatus: p.PlatformStatus,
		PayAmount:      p.PayAmount,
	}
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errcode.ErrValidation, err))
		return
	}

	info, err := h.payments.CreateIntent(r.Context(), userID, req.OrderNo, dompayment.Platform(req.Platform))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayInfoResponse(info))
}

func (h *Handler) handleQueryPayStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderNo, err := pathOrderNo(r)
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := h.payments.QueryStatus(r.Context(), orderNo, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayInfoResponse(info))
}

type notifyRequest struct {
	PlatformNumber string `json:"platform_number"`
	TradeStatus    string `json:"trade_status"`
}

// handlePaymentNotify is the platform callback endpoint. The platform
// retries until it reads the literal body "success", so every outcome the
// reconciler treats as settled answers with that body.
func (h *Handler) handlePaymentNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errcode.ErrValidation, err))
		return
	}

	if err := h.payments.Reconcile(r.Context(), req.PlatformNumber, req.TradeStatus); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("success"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// userID reads the authenticated user from the gateway-injected header.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(headerUserID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeStatus(w, http.StatusUnauthorized, errcode.CodeValidation, "missing or malformed "+headerUserID+" header")
		return 0, false
	}
	return id, true
}

func pathOrderNo(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "orderNo")
	orderNo, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderNo <= 0 {
		return 0, fmt.Errorf("%w: order number must be a positive integer", errcode.ErrValidation)
	}
	return orderNo, nil
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
