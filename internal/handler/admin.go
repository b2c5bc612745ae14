package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/gameshop-system/internal/repository"
	"github.com/mmeshcher/gameshop-system/internal/service"
)

// statsResponse — сводные показатели магазина. Имена полей в camelCase —
// исторический формат административной панели.
type statsResponse struct {
	TotalUsers      int64   `json:"totalUsers"`
	TotalProducts   int64   `json:"totalProducts"`
	TotalOrders     int64   `json:"totalOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalImportCost float64 `json:"totalImportCost"`
	TotalProfit     float64 `json:"totalProfit"`
}

// GetStats возвращает сводные показатели магазина. Только для администратора.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.serverError(w, "get stats error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:      stats.TotalUsers,
		TotalProducts:   stats.TotalProducts,
		TotalOrders:     stats.TotalOrders,
		TotalRevenue:    fromCents(stats.TotalRevenueCents),
		TotalImportCost: fromCents(stats.TotalImportCostCents),
		TotalProfit:     fromCents(stats.TotalProfitCents),
	})
}

// GetUsers возвращает всех пользователей. Только для администратора.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, "get users error", err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		u := newUserResponse(&users[i])
		u.CreatedAt = formatTime(users[i].CreatedAt)
		resp = append(resp, u)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type updateUserRequest struct {
	Username     *string  `json:"username"`
	Email        *string  `json:"email"`
	Role         *string  `json:"role"`
	Balance      *float64 `json:"balance"`
	CustomerCode *string  `json:"customer_code"`
}

// UpdateUser применяет частичное обновление пользователя. Только для администратора.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.service.UpdateUser(r.Context(), id, service.UserUpdateInput{
		Username:     req.Username,
		Email:        req.Email,
		Role:         req.Role,
		Balance:      req.Balance,
		CustomerCode: req.CustomerCode,
	})
	if err != nil {
		switch {
		case isUserValidationErr(err):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrCustomerCodeTaken):
			h.writeError(w, http.StatusBadRequest, "customer code already exists")
		case errors.Is(err, repository.ErrUserExists):
			h.writeError(w, http.StatusBadRequest, "username or email already taken")
		default:
			h.serverError(w, "update user error", err, zap.Int64("userID", id))
		}
		return
	}

	resp := newUserResponse(u)
	resp.CreatedAt = formatTime(u.CreatedAt)
	h.writeJSON(w, http.StatusOK, resp)
}

// GetAllTopupRequests возвращает все заявки на пополнение с данными
// заявителей. Только для администратора.
func (h *Handler) GetAllTopupRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListTopupRequests(r.Context())
	if err != nil {
		h.serverError(w, "get all topup requests error", err)
		return
	}

	resp := make([]topupResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, newTopupResponse(&requests[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Health — проверка доступности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "server is running"})
}

func isUserValidationErr(err error) bool {
	return errors.Is(err, service.ErrInvalidRole) ||
		errors.Is(err, service.ErrNegativeBalance) ||
		errors.Is(err, service.ErrInvalidCustomerCode) ||
		errors.Is(err, service.ErrNoFieldsToUpdate)
}
