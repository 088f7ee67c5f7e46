package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/gateway"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// RecordResponse is the body of GET /v1/records/{id}/meta.
type RecordResponse struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Access string `json:"access"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

type requestIDKey struct{}

func (a *HTTPAdapter) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /v1/records/{id}", a.wrap("read", a.handleRead))
	mux.Handle("PUT /v1/records/{id}", a.wrap("write", a.handleWrite))
	mux.Handle("DELETE /v1/records/{id}", a.wrap("delete", a.handleDelete))
	mux.Handle("POST /v1/records/{id}/provision", a.wrap("provision", a.handleProvision))
	mux.Handle("PATCH /v1/records/{id}/access", a.wrap("set_access", a.handleSetAccess))
	mux.Handle("GET /v1/records/{id}/meta", a.wrap("stat", a.handleStat))
	mux.HandleFunc("GET /healthz", a.handleHealth)

	return mux
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier)

// statusRecorder captures the status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// wrap applies the common request pipeline:
//  1. Assign a request ID
//  2. Resolve the caller identity (401 if missing)
//  3. Apply the per-caller rate limit (429)
//  4. Decode the hex identifier (400)
//  5. Record metrics
func (a *HTTPAdapter) wrap(route string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		a.metrics.RecordRequestStart()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			a.metrics.RecordRequestEnd()
			a.metrics.RecordRequest(route, r.Method, rec.status, time.Since(start))
		}()

		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		rec.Header().Set(RequestIDHeader, reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))

		caller := access.Identity(r.Header.Get(IdentityHeader))
		if caller == "" {
			writeError(rec, r, http.StatusUnauthorized, "unauthenticated", "missing "+IdentityHeader+" header")
			return
		}

		if !a.limiter.Allow(string(caller)) {
			a.metrics.RecordRateLimited()
			rec.Header().Set("Retry-After", "1")
			writeError(rec, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		raw, err := hex.DecodeString(r.PathValue("id"))
		if err != nil || len(raw) == 0 {
			writeError(rec, r, http.StatusBadRequest, "invalid_argument", "identifier must be non-empty hex")
			return
		}

		a.mu.Lock()
		gw := a.gateway
		a.mu.Unlock()
		if gw == nil {
			writeError(rec, r, http.StatusServiceUnavailable, "unavailable", "gateway not ready")
			return
		}

		h(rec, r, caller, metadata.IdentifierFromBytes(raw))
	})
}

func (a *HTTPAdapter) gw() *gateway.Gateway {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gateway
}

func (a *HTTPAdapter) handleRead(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	data, err := a.gw().Read(r.Context(), caller, id)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *HTTPAdapter) handleWrite(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	body := http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_argument", "failed to read body")
		return
	}

	if err := a.gw().Write(r.Context(), caller, id, data); err != nil {
		writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *HTTPAdapter) handleDelete(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	if err := a.gw().Delete(r.Context(), caller, id); err != nil {
		writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *HTTPAdapter) handleProvision(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	level := a.gw().Policy().DefaultAccess
	if v := r.URL.Query().Get("access"); v != "" {
		parsed, err := access.ParseLevel(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
			return
		}
		level = parsed
	}

	if err := a.gw().Provision(r.Context(), caller, id, level); err != nil {
		writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *HTTPAdapter) handleSetAccess(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	level, err := access.ParseLevel(r.URL.Query().Get("access"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	if err := a.gw().SetAccess(r.Context(), caller, id, level); err != nil {
		writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *HTTPAdapter) handleStat(w http.ResponseWriter, r *http.Request, caller access.Identity, id metadata.Identifier) {
	rec, err := a.gw().Stat(r.Context(), caller, id)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{
		ID:     id.Hex(),
		Author: string(rec.Author),
		Access: rec.Access.String(),
	})
}

func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	gw := a.gw()
	if gw == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "gateway not ready")
		return
	}
	if err := gw.Healthcheck(r.Context()); err != nil {
		logger.Warn("Healthcheck failed: %v", err)
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps gateway errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNoSuchRecord):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrRecordExists):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrInvalidIdentifier), errors.Is(err, gateway.ErrInvalidAccess):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrExternal):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		logger.Error("request %s %s failed: %v", r.Method, r.URL.Path, err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeError(w, r, status, gateway.Outcome(err), msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	reqID, _ := r.Context().Value(requestIDKey{}).(string)
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to encode response: %v", err)
	}
}
