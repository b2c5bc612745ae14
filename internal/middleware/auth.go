// Package middleware содержит HTTP middleware магазина игровых аккаунтов.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/gameshop-system/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// tokenTTL — срок действия выданного токена.
const tokenTTL = 7 * 24 * time.Hour

// Identity содержит данные пользователя, восстановленные из токена.
type Identity struct {
	UserID   int64
	Username string
	Role     model.Role
}

// IsAdmin сообщает, является ли пользователь администратором.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

type claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware выполняет проверку аутентификации пользователя по JWT
// в заголовке Authorization.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// IssueToken выдаёт подписанный токен для указанного пользователя.
func (a *AuthMiddleware) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})

	return token.SignedString(a.secretKey)
}

// Middleware проверяет токен авторизации и добавляет данные пользователя
// в контекст запроса. Запросы без корректного токена отклоняются.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w)
			return
		}

		identity, ok := a.parseToken(tokenString)
		if !ok {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional добавляет данные пользователя в контекст, если запрос содержит
// корректный токен, и пропускает запрос дальше в любом случае. Используется
// каталогом: видимость товаров зависит от роли, но авторизация не обязательна.
func (a *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString, ok := bearerToken(r); ok {
			if identity, ok := a.parseToken(tokenString); ok {
				ctx := context.WithValue(r.Context(), identityKey, identity)
				r = r.WithContext(ctx)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает запрос только от пользователя с ролью admin.
// Должен стоять после Middleware.
func (a *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w)
			return
		}

		if !identity.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}

	return token, true
}

func (a *AuthMiddleware) parseToken(tokenString string) (Identity, bool) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secretKey, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, false
	}

	if c.UserID == 0 {
		return Identity{}, false
	}

	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     model.Role(c.Role),
	}, true
}

func writeUnauthorized(w http.ResponseWriter) {
	writeMessage(w, http.StatusUnauthorized, "authentication required")
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// GetIdentityFromContext извлекает данные пользователя из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
