package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/notify"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
	"github.com/ariefcatur/go-weekly-orders/internal/weekly"
)

type CatalogReader interface {
	CurrentCatalog(ctx context.Context) (weekly.Current, bool, error)
}

type ProductLister interface {
	ListActiveProducts(ctx context.Context, categoryID *int64) ([]catalog.Product, error)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, sub orders.Submission) (orders.Order, error)
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// CatalogCache holds the rendered /catalog body per cache version. *redisx.Store implements it.
type CatalogCache interface {
	CatalogVersion(ctx context.Context) (int64, error)
	CachedCatalog(ctx context.Context, version int64) ([]byte, bool, error)
	CacheCatalog(ctx context.Context, version int64, body []byte) error
}

// SubmitGuard reserves Idempotency-Key values so a retried submission returns the first order.
// *redisx.Store implements it.
type SubmitGuard interface {
	ClaimOrder(ctx context.Context, key string) (orderID int64, claimed bool, err error)
	RememberOrder(ctx context.Context, key string, orderID int64) error
	ReleaseOrder(ctx context.Context, key string) error
}

// StorefrontHandler serves the customer side. Cache, Idem, Events and Limiter are optional.
type StorefrontHandler struct {
	Lists    CatalogReader
	Products ProductLister
	Orders   OrderSubmitter
	Cache    CatalogCache
	Idem     SubmitGuard
	Events   EventPublisher
	Limiter  *RateLimiter
	Fee      decimal.Decimal
	Service  string
	Log      logrus.FieldLogger
}

type catalogResp struct {
	Available bool `json:"available"`
	*weekly.Current
}

type cartItem struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// SubmitOrderReq is the storefront cart. Items are keyed by product id.
type SubmitOrderReq struct {
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	DeliveryAddress string              `json:"delivery_address"`
	DeliveryFee     *decimal.Decimal    `json:"delivery_fee"`
	Items           map[string]cartItem `json:"items"`
}

type SubmitOrderResp struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (h *StorefrontHandler) Register(r chi.Router) {
	r.Get("/catalog", h.currentCatalog)
	r.Get("/products", h.listProducts)
	if h.Limiter != nil {
		r.With(h.Limiter.Handler).Post("/orders", h.submitOrder)
	} else {
		r.Post("/orders", h.submitOrder)
	}
}

func (h *StorefrontHandler) currentCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	var version int64
	cacheable := h.Cache != nil
	if cacheable {
		v, err := h.Cache.CatalogVersion(ctx)
		if err != nil {
			reqLog(h.Log, r).WithError(err).Warn("catalog cache version")
			cacheable = false
		}
		version = v
	}
	if cacheable {
		if body, ok, err := h.Cache.CachedCatalog(ctx, version); err != nil {
			reqLog(h.Log, r).WithError(err).Warn("catalog cache read")
		} else if ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(body)
			return
		}
	}

	// 2) database
	cur, ok, err := h.Lists.CurrentCatalog(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	resp := catalogResp{Available: ok}
	if ok {
		resp.Current = &cur
	}
	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if cacheable {
		if err := h.Cache.CacheCatalog(ctx, version, body); err != nil {
			reqLog(h.Log, r).WithError(err).Warn("catalog cache write")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}

func (h *StorefrontHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var categoryID *int64
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, h.Log, apperr.Invalid("category_id", "must be an integer"))
			return
		}
		categoryID = &id
	}

	ps, err := h.Products.ListActiveProducts(ctx, categoryID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (req SubmitOrderReq) submission(defaultFee decimal.Decimal) (orders.Submission, error) {
	sub := orders.Submission{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryFee:     defaultFee,
	}
	if req.DeliveryFee != nil {
		sub.DeliveryFee = *req.DeliveryFee
	}
	for key, it := range req.Items {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return orders.Submission{}, apperr.InvalidOrder("items", "invalid product id "+strconv.Quote(key))
		}
		sub.Lines = append(sub.Lines, orders.CartLine{ProductID: id, Quantity: it.Quantity, Price: it.Price, Total: it.Total})
	}
	sort.Slice(sub.Lines, func(i, j int) bool { return sub.Lines[i].ProductID < sub.Lines[j].ProductID })
	return sub, nil
}

func (h *StorefrontHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitOrderResp{Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	log := reqLog(h.Log, r)

	sub, err := req.submission(h.Fee)
	if err != nil {
		h.rejectOrder(w, r, err)
		return
	}

	// Idempotency: claim the key before writing so concurrent retries cannot both submit
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Idem != nil {
		id, claimed, err := h.Idem.ClaimOrder(ctx, idemKey)
		switch {
		case errors.Is(err, apperr.ErrConflict):
			h.rejectOrder(w, r, err)
			return
		case err != nil:
			log.WithError(err).Warn("idempotency claim failed; submitting without it")
			idemKey = ""
		case !claimed:
			writeJSON(w, http.StatusOK, SubmitOrderResp{Success: true, OrderID: id, Message: "order already received"})
			return
		}
	} else {
		idemKey = ""
	}

	o, err := h.Orders.Submit(ctx, sub)
	if err != nil {
		if idemKey != "" {
			if rerr := h.Idem.ReleaseOrder(context.WithoutCancel(ctx), idemKey); rerr != nil {
				log.WithError(rerr).Warn("idempotency release")
			}
		}
		h.rejectOrder(w, r, err)
		return
	}

	if idemKey != "" {
		if err := h.Idem.RememberOrder(context.WithoutCancel(ctx), idemKey, o.ID); err != nil {
			log.WithError(err).Warn("idempotency store")
		}
	}
	h.publishPlaced(r, o)

	writeJSON(w, http.StatusCreated, SubmitOrderResp{Success: true, OrderID: o.ID, Message: "order received"})
}

func (h *StorefrontHandler) rejectOrder(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		reqLog(h.Log, r).WithError(err).Error("order submission failed")
	}
	writeJSON(w, code, SubmitOrderResp{Message: msg, Field: apperr.FieldOf(err)})
}

// publishPlaced runs after the order is committed. Failures are logged, never returned.
func (h *StorefrontHandler) publishPlaced(r *http.Request, o orders.Order) {
	if h.Events == nil {
		return
	}
	value, err := notify.NewOrderPlaced(o, h.Service, middleware.GetReqID(r.Context()))
	if err != nil {
		reqLog(h.Log, r).WithError(err).WithField("order_id", o.ID).Error("encode order event")
		return
	}
	h.Events.Publish(notify.PartitionKey(o.ID), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(notify.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
