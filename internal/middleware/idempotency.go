package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

// fingerprintLimit caps how much of the request body is hashed.
const fingerprintLimit = 1 << 20

// Idempotency replays the stored response of a successful request repeated
// with the same Idempotency-Key header and the same body. A reused key with a
// different body is rejected with 422. Requests without the header pass through.
func Idempotency(store *services.IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || !store.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			userID, _ := UserIDFromContext(r.Context())
			storeKey := services.IdempotencyKey(userID, r.Method+" "+r.URL.Path, key)

			fingerprint, err := fingerprintBody(r)
			if err != nil {
				services.SendErrorResponse(w, "request.body.invalid", http.StatusBadRequest, nil)
				return
			}

			stored, err := store.Begin(r.Context(), storeKey)
			if err != nil {
				services.SendServiceError(w, err, "transactions.idempotency.error")
				return
			}
			if stored != nil {
				if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
					services.SendErrorResponse(w, "transactions.idempotency.mismatch", http.StatusUnprocessableEntity, nil)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			ctx := context.WithoutCancel(r.Context())
			defer func() {
				if rec := recover(); rec != nil {
					if err := store.Release(ctx, storeKey); err != nil {
						zap.L().Warn("Failed to release idempotency key", zap.Error(err))
					}
					panic(rec)
				}
			}()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var body bytes.Buffer
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				if err := store.Release(ctx, storeKey); err != nil {
					zap.L().Warn("Failed to release idempotency key", zap.Error(err))
				}
				return
			}

			var raw []byte
			if trimmed := bytes.TrimSpace(body.Bytes()); len(trimmed) > 0 {
				raw = trimmed
			}
			if err := store.Complete(ctx, storeKey, services.StoredResponse{Status: status, Body: raw, Fingerprint: fingerprint}); err != nil {
				zap.L().Warn("Failed to store idempotent response", zap.Error(err))
			}
		})
	}
}

// fingerprintBody hashes the head of the request body and restores it for
// the next handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		return bodyFingerprint(nil), nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, fingerprintLimit))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return bodyFingerprint(head), nil
}

func bodyFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
