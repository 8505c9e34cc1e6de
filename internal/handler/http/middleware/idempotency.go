package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// Idempotency replays the stored response for a retried mutation that carries
// an Idempotency-Key header. Only 2xx responses are stored. A nil store disables it.
// Redis failures fall through to normal handling. Reusing a key with a different
// body is rejected instead of replayed.
func Idempotency(store idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			idempKey := r.Header.Get(IdempotencyKeyHeader)
			if store == nil || idempKey == "" || !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwt.ClaimsFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				response.BadRequest(w, "failed to read request body", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			fingerprint := idempotency.Fingerprint(payload)

			ctx := r.Context()
			key := idempotency.Key(claims.CompanyID, r.Method, r.URL.Path, idempKey)

			stored, err := store.Get(ctx, key)
			if err != nil {
				slog.Warn("idempotency lookup failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if stored != nil {
				respondStored(w, stored, fingerprint)
				return
			}

			if err := store.Acquire(ctx, key); err != nil {
				if errors.Is(err, idempotency.ErrInFlight) {
					response.HandleError(w, err)
					return
				}
				slog.Warn("idempotency lock failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			defer func() {
				if err := store.Release(ctx, key); err != nil {
					slog.Warn("idempotency release failed", "key", key, "error", err)
				}
			}()

			// The first request may have saved and released between Get and Acquire.
			stored, err = store.Get(ctx, key)
			if err != nil {
				slog.Warn("idempotency recheck failed", "key", key, "error", err)
			} else if stored != nil {
				respondStored(w, stored, fingerprint)
				return
			}

			var body bytes.Buffer
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 300 {
				return
			}
			if err := store.Save(ctx, key, idempotency.StoredResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
				Fingerprint: fingerprint,
			}); err != nil {
				slog.Warn("idempotency save failed", "key", key, "error", err)
			}
		}
		return http.HandlerFunc(hfn)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func respondStored(w http.ResponseWriter, stored *idempotency.StoredResponse, fingerprint string) {
	if !stored.Matches(fingerprint) {
		response.HandleError(w, idempotency.ErrKeyReused)
		return
	}
	replay(w, stored)
}

func replay(w http.ResponseWriter, stored *idempotency.StoredResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}
