package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeRateStore struct {
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	return req
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitBlocksPerEmail(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	store := newFakeRateStore()
	var calls int
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("alice@example.com", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("alice@example.com", ""))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: expected 429, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}

	// A different email keeps its own counter.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("bob@example.com", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("other email blocked: got %d", rec.Code)
	}
}

func TestAuthRateLimitBlocksPerIP(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 0)
	store := newFakeRateStore()
	var calls int
	handler := AuthRateLimit(policy, store, nil)(okHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("alice@example.com", "10.0.0.1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("bob@example.com", "10.0.0.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same ip: expected 429, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("carol@example.com", "10.0.0.2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("other ip blocked: got %d", rec.Code)
	}
}

func TestAuthRateLimitDisabledWithoutStoreOrPolicy(t *testing.T) {
	var calls int

	disabled := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 0, 0), newFakeRateStore(), nil)(okHandler(&calls))
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, loginRequest("alice@example.com", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled policy must pass through, got %d", rec.Code)
	}

	noStore := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), nil, nil)(okHandler(&calls))
	rec = httptest.NewRecorder()
	noStore.ServeHTTP(rec, loginRequest("alice@example.com", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("missing store must pass through, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}
