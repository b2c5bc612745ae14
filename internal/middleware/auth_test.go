package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	token, err := m.IssueToken(&model.User{
		ID:       42,
		Username: "buyer",
		Role:     model.RoleUser,
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if identity.UserID != 42 {
			t.Fatalf("user id from context = %d, want 42", identity.UserID)
		}
		if identity.Username != "buyer" {
			t.Fatalf("username from context = %q, want %q", identity.Username, "buyer")
		}
		if identity.IsAdmin() {
			t.Fatalf("regular user must not be admin")
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware("one-secret")
	verifier := NewAuthMiddleware("other-secret")

	token, err := issuer.IssueToken(&model.User{ID: 1, Username: "buyer", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	handler := verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	}))
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
	}{
		{
			name:       "admin allowed",
			user:       &model.User{ID: 1, Username: "root", Role: model.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "regular user forbidden",
			user:       &model.User{ID: 2, Username: "buyer", Role: model.RoleUser},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.IssueToken(tt.user)
			if err != nil {
				t.Fatalf("issue token: %v", err)
			}

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/admin", nil)
			r.Header.Set("Authorization", "Bearer "+token)

			handler := m.Middleware(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			handler.ServeHTTP(w, r)

			res := w.Result()
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestOptional_AnonymousPasses(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	handler := m.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if _, ok := GetIdentityFromContext(r.Context()); ok {
			t.Fatalf("identity must not be set for anonymous request")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products", nil))

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestOptional_AttachesIdentity(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	token, err := m.IssueToken(&model.User{ID: 7, Username: "root", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	handler := m.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if !identity.IsAdmin() {
			t.Fatalf("identity role = %q, want admin", identity.Role)
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), r)
}
