// Package handler содержит HTTP-обработчики API магазина игровых аккаунтов.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/gameshop-system/internal/middleware"
	"github.com/mmeshcher/gameshop-system/internal/model"
	"github.com/mmeshcher/gameshop-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, email, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	ListProducts(ctx context.Context, asAdmin bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64, asAdmin bool) (*model.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, userID, productID int64, paymentMethod string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListAllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error)

	GetBalance(ctx context.Context, userID int64) (float64, error)
	CreateTopupRequest(ctx context.Context, userID int64, amount float64) (*model.TopupRequest, error)
	GetTopupRequestsByUser(ctx context.Context, userID int64) ([]model.TopupRequest, error)
	ListTopupRequests(ctx context.Context) ([]model.TopupRequest, error)
	ApproveTopup(ctx context.Context, id, adminID int64, notes string) (float64, error)
	RejectTopup(ctx context.Context, id, adminID int64, notes string) error

	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, in service.UserUpdateInput) (*model.User, error)
	GetStats(ctx context.Context) (*model.Stats, error)
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// messageResponse — тело ответа с одним информационным сообщением.
// В этом же формате возвращаются все ошибки API.
type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, messageResponse{Message: message})
}

// serverError логирует неожиданную ошибку и возвращает клиенту 500.
func (h *Handler) serverError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	h.writeError(w, http.StatusInternalServerError, "server error: "+err.Error())
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// identity достаёт данные пользователя из контекста. Отсутствие данных
// после auth-middleware означает ошибку конфигурации маршрутов.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return middleware.Identity{}, false
	}
	return identity, true
}

// isAdmin сообщает, выполняется ли запрос от имени администратора.
// Используется маршрутами каталога с необязательной авторизацией.
func isAdmin(r *http.Request) bool {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	return ok && identity.IsAdmin()
}
