package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
	"github.com/ariefcatur/go-weekly-orders/internal/redisx"
	"github.com/ariefcatur/go-weekly-orders/internal/reports"
	"github.com/ariefcatur/go-weekly-orders/internal/weekly"
)

const SessionCookie = "admin_session"

type ListManager interface {
	Publish(ctx context.Context, capa auth.Capability, in weekly.PublishInput) (weekly.List, error)
	Close(ctx context.Context, capa auth.Capability, id int64) (weekly.List, error)
	History(ctx context.Context, limit int) ([]weekly.List, error)
	Get(ctx context.Context, id int64) (weekly.List, error)
}

type OrderReader interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
	ForList(ctx context.Context, listID int64) ([]orders.Order, error)
}

type ReportReader interface {
	Report(ctx context.Context, listID int64) (reports.Report, error)
}

// CatalogAdmin is the catalog write side, implemented by *catalog.Repo.
type CatalogAdmin interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (catalog.Category, error)
	UpdateCategory(ctx context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error)
	ToggleActive(ctx context.Context, id int64) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type AdminHandler struct {
	Sessions    *auth.Sessions
	Credentials auth.Credentials
	Lists       ListManager
	Orders      OrderReader
	Reports     ReportReader
	Catalog     CatalogAdmin
	Cache       *redisx.Store
	Limiter     *RateLimiter
	Log         logrus.FieldLogger
}

type ctxKey struct{}

// CapabilityFrom returns the capability RequireAdmin attached, or the zero capability.
func CapabilityFrom(ctx context.Context) auth.Capability {
	c, _ := ctx.Value(ctxKey{}).(auth.Capability)
	return c
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireAdmin verifies the session token from the Authorization header or the cookie.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := sessionToken(r)
		if tok == "" {
			writeError(w, r, h.Log, apperr.ErrUnauthorized)
			return
		}
		capa, err := h.Sessions.Verify(r.Context(), tok)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthorized) {
				reqLog(h.Log, r).WithError(err).Error("session verification")
			}
			writeError(w, r, h.Log, apperr.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, capa)))
	})
}

func requireScope(scope auth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CapabilityFrom(r.Context()).Allows(scope) {
				writeJSON(w, http.StatusForbidden, errorResp{Error: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		if h.Limiter != nil {
			r.With(h.Limiter.Handler).Post("/login", h.login)
		} else {
			r.Post("/login", h.login)
		}
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)

			r.Get("/lists", h.listHistory)
			r.Post("/lists", h.publishList)
			r.Post("/lists/{id}/close", h.closeList)

			r.Group(func(r chi.Router) {
				r.Use(requireScope(auth.ScopeReports))
				r.Get("/lists/{id}/report", h.listReport)
				r.Get("/lists/{id}/orders", h.listOrders)
				r.Get("/orders/{id}", h.getOrder)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireScope(auth.ScopeCatalog))
				r.Get("/categories", h.listCategories)
				r.Post("/categories", h.createCategory)
				r.Put("/categories/{id}", h.updateCategory)
				r.Delete("/categories/{id}", h.deleteCategory)
				r.Get("/products", h.listProducts)
				r.Post("/products", h.createProduct)
				r.Put("/products/{id}", h.updateProduct)
				r.Delete("/products/{id}", h.deleteProduct)
				r.Post("/products/{id}/toggle", h.toggleProduct)
			})
		})
	})
}

// ---- session ----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !h.Credentials.Check(req.Username, req.Password) {
		reqLog(h.Log, r).WithField("username", req.Username).Warn("admin login failed")
		writeJSON(w, http.StatusUnauthorized, errorResp{Error: "invalid credentials"})
		return
	}

	tok, exp, err := h.Sessions.Issue(h.Credentials.Username)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	reqLog(h.Log, r).WithField("username", h.Credentials.Username).Info("admin logged in")
	writeJSON(w, http.StatusOK, loginResp{Token: tok, ExpiresAt: exp})
}

func (h *AdminHandler) logout(w http.ResponseWriter, r *http.Request) {
	if tok := sessionToken(r); tok != "" {
		if err := h.Sessions.Revoke(r.Context(), tok); err != nil {
			reqLog(h.Log, r).WithError(err).Warn("session revoke")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ---- weekly lists ----

type listView struct {
	weekly.List
	State weekly.State `json:"state"`
}

func viewOf(l weekly.List) listView { return listView{List: l, State: l.State()} }

func (h *AdminHandler) invalidateCatalog(r *http.Request) {
	if err := h.Cache.InvalidateCatalog(r.Context()); err != nil {
		reqLog(h.Log, r).WithError(err).Warn("catalog cache invalidation")
	}
}

func (h *AdminHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, h.Log, apperr.Invalid("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}
	ls, err := h.Lists.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out := make([]listView, 0, len(ls))
	for _, l := range ls {
		out = append(out, viewOf(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) publishList(w http.ResponseWriter, r *http.Request) {
	var in weekly.PublishInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	l, err := h.Lists.Publish(r.Context(), CapabilityFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusCreated, viewOf(l))
}

func (h *AdminHandler) closeList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	l, err := h.Lists.Close(r.Context(), CapabilityFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, viewOf(l))
}

func (h *AdminHandler) listReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if _, err := h.Lists.Get(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	rep, err := h.Reports.Report(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if _, err := h.Lists.Get(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	placed, err := h.Orders.ForList(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, placed)
}

func (h *AdminHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ---- catalog ----

func (h *AdminHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *AdminHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Catalog.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.Catalog.UpdateCategory(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	q := r.URL.Query()
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, h.Log, apperr.Invalid("category_id", "must be an integer"))
			return
		}
		f.CategoryID = &id
	}
	f.ActiveOnly = q.Get("active") == "true"

	ps, err := h.Catalog.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) toggleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.ToggleActive(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "is_active": p.Active})
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
