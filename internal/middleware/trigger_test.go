package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestTriggerToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := TriggerToken(string(hash))(ok)

	tests := []struct {
		name   string
		method string
		header map[string]string
		want   int
	}{
		{"bearer ok", http.MethodGet, map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
		{"header ok", http.MethodGet, map[string]string{"X-Trigger-Token": "s3cret"}, http.StatusOK},
		{"wrong token", http.MethodGet, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"missing token", http.MethodGet, nil, http.StatusUnauthorized},
		{"preflight skips check", http.MethodOptions, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/lifecycle/check", http.NoBody)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTriggerTokenDisabled(t *testing.T) {
	called := false
	handler := TriggerToken("")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if !called {
		t.Error("empty hash should leave the endpoint open")
	}
}
