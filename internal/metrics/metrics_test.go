package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/admin/orders/{id}", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/orders/42", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/admin/orders/{id}", "404"))

	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(ordersSubmitted.WithLabelValues("ok"))
	OrderSubmitted("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(ordersSubmitted.WithLabelValues("ok")))

	ListPublished("conflict")
	assert.GreaterOrEqual(t, testutil.ToFloat64(listsPublished.WithLabelValues("conflict")), 1.0)
}

func TestHandlerServesExposition(t *testing.T) {
	OrderSubmitted("ok")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weekly_orders_orders_submitted_total")
}
