package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

const msgOrderingUnavailable = "ordering is temporarily unavailable"

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusOf maps an error kind to a status and a message safe to show the caller.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNoActiveList):
		return http.StatusConflict, msgOrderingUnavailable
	case errors.Is(err, apperr.ErrInvalidOrder), errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrUnknownProduct):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func reqLog(log logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return log.WithField("request_id", middleware.GetReqID(r.Context()))
}

func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		reqLog(log, r).WithError(err).Error("request failed")
	}
	writeJSON(w, code, errorResp{Error: msg, Field: apperr.FieldOf(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("", fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}
