package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"staybook/pkg/logger"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	handler := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, incoming, seen)
	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.NotEqual(t, "<script>", seen)
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(logger.Discard())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"bodyless post", http.MethodPost, "", "", http.StatusOK},
		{"get", http.MethodGet, "", "text/plain", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/bookings", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	handler := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "TIMEOUT")
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	handler := Recovery(logger.Discard())(RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	limiter := NewKeyedRateLimiter(2, time.Minute, ClientIP, logger.Discard())
	defer limiter.Stop()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("phone:09171234567"))
	assert.True(t, limiter.Allow("phone:09171234567"))
	assert.False(t, limiter.Allow("phone:09171234567"))
	assert.True(t, limiter.Allow("phone:09181234567"), "keys are independent")
	assert.True(t, limiter.Allow(""), "empty keys are never limited")

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow("phone:09171234567"), "window slides")
}

func TestRateLimit_ByGuestPhone(t *testing.T) {
	normalize := func(s string) string {
		mobile, _ := sanitizer.NormalizeMobile(s)
		return mobile
	}
	limiter := NewKeyedRateLimiter(1, time.Minute, JSONFieldExtractor("guest_phone", normalize), logger.Discard())
	defer limiter.Stop()

	onlyIntake := func(r *http.Request) bool {
		return r.Method == http.MethodPost && r.URL.Path == "/api/v1/bookings"
	}

	var bodies []string
	handler := RateLimit(limiter, onlyIntake)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		bodies = append(bodies, buf.String())
		w.WriteHeader(http.StatusCreated)
	}))

	post := func(path, body string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, post("/api/v1/bookings", `{"guest_phone":"0917 123 4567"}`))
	assert.Equal(t, http.StatusTooManyRequests, post("/api/v1/bookings", `{"guest_phone":"+639171234567"}`),
		"same number in another format shares the bucket")
	assert.Equal(t, http.StatusCreated, post("/api/v1/bookings", `{"guest_phone":"09181234567"}`))
	assert.Equal(t, http.StatusCreated, post("/api/v1/bookings/quote", `{"guest_phone":"09171234567"}`))

	require.Len(t, bodies, 3)
	assert.Equal(t, `{"guest_phone":"0917 123 4567"}`, bodies[0])
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	handler := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"n":%d}`, n)
	}))

	post := func(path, key string, actor model.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, key)
		req = req.WithContext(WithActor(context.Background(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	admin := model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	first := post("/api/v1/bookings", "k1", admin)
	replay := post("/api/v1/bookings", "k1", admin)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))

	post("/api/v1/bookings/quote", "k1", admin)
	assert.Equal(t, int32(2), calls.Load(), "keys are scoped by path")

	post("/api/v1/bookings", "k1", model.Actor{ID: "agent-1", Role: model.RoleAgent})
	assert.Equal(t, int32(3), calls.Load(), "keys are scoped by caller")
}
