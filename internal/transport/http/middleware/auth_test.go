package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_UserIDPropagated(t *testing.T) {
	var gotUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromCtx(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/slots", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if gotUserID != 42 {
		t.Fatalf("user id = %d, want 42", gotUserID)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
	}{
		{"no bearer", map[string]string{"X-User-ID": "42"}},
		{"no user id", map[string]string{"Authorization": "Bearer t"}},
		{"bad user id", map[string]string{"Authorization": "Bearer t", "X-User-ID": "abc"}},
		{"negative user id", map[string]string{"Authorization": "Bearer t", "X-User-ID": "-1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/slots", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized || called {
				t.Fatalf("code = %d, called = %v", rec.Code, called)
			}
		})
	}
}
