package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// DefaultIdempotencyTTL is how long a response is replayable.
	DefaultIdempotencyTTL = 24 * time.Hour

	// maxIdempotentBody bounds the body buffered for fingerprinting.
	maxIdempotentBody = 64 << 20
)

// IdempotencyStore is the key store behind IdempotencyMiddleware.
type IdempotencyStore interface {
	usecase.IdempotencyStore
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// storedResponse is what a request leaves under its key. Status is zero while
// the first request is still running. Fingerprint ties the key to one
// method, path and body.
type storedResponse struct {
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// IdempotencyMiddleware replays the first successful response for a repeated Idempotency-Key.
// Keys are scoped per company. Reusing a key for a different request, such as a
// journal entry with another amount, is rejected with 422 rather than replayed.
type IdempotencyMiddleware struct {
	store IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. ttl <= 0 uses DefaultIdempotencyTTL.
func NewIdempotencyMiddleware(store IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if p, ok := domain.PrincipalFromContext(r.Context()); ok {
			key = p.CompanyID + ":" + key
		}

		fingerprint, err := fingerprintRequest(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		claim, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, claim, m.ttl)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("idempotency check failed")
			writeJSONError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			var stored storedResponse
			decoded := len(cached) > 0 && json.Unmarshal(cached, &stored) == nil
			if decoded && stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
				writeJSONError(w, http.StatusUnprocessableEntity, "idempotency key was used for a different request")
				return
			}
			if !decoded || stored.Status == 0 {
				writeJSONError(w, http.StatusConflict, "a request with this idempotency key is in progress")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.WriteHeader(stored.Status)
			_, _ = w.Write(stored.Body)
			return
		}

		// Capture response
		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// Background context so a cancelled client still settles the key.
		ctx := context.WithoutCancel(r.Context())
		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			payload, err := json.Marshal(storedResponse{
				Status:      recorder.statusCode,
				Body:        recorder.bodyJSON(),
				Fingerprint: fingerprint,
			})
			if err == nil {
				err = m.store.Update(ctx, key, payload, m.ttl)
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to store idempotent response")
			}
			return
		}

		if err := m.store.Release(ctx, key); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to release idempotency key")
		}
	})
}

// fingerprintRequest hashes method, path and body, then restores the body for
// the next handler.
func fingerprintRequest(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxIdempotentBody))
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// bodyJSON returns the captured body, or null when it is not JSON.
func (r *responseRecorder) bodyJSON() json.RawMessage {
	b := bytes.TrimSpace(r.body.Bytes())
	if !json.Valid(b) {
		return json.RawMessage("null")
	}
	return b
}
