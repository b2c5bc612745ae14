package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/gameshop-system/internal/model"
	"github.com/mmeshcher/gameshop-system/internal/repository"
	"github.com/mmeshcher/gameshop-system/internal/service"
)

type createOrderRequest struct {
	ProductID     int64  `json:"product_id"`
	PaymentMethod string `json:"payment_method"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// orderResponse — представление заказа в API. AccountInfo присутствует
// только у завершённых заказов пользователя, Username и Email — только
// в административных выборках.
type orderResponse struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	ProductID     int64   `json:"product_id"`
	TotalPrice    float64 `json:"total_price"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	GameName      string  `json:"game_name"`
	AccountLevel  string  `json:"account_level"`
	AccountInfo   *string `json:"account_info,omitempty"`
	Username      string  `json:"username,omitempty"`
	Email         string  `json:"email,omitempty"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		ProductID:     o.ProductID,
		TotalPrice:    fromCents(o.TotalPriceCents),
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     formatTime(o.CreatedAt),
		GameName:      o.GameName,
		AccountLevel:  o.AccountLevel,
		AccountInfo:   o.AccountInfo,
		Username:      o.Username,
		Email:         o.Email,
	}
}

// CreateOrder оформляет покупку товара текущим пользователем.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == 0 {
		h.writeError(w, http.StatusBadRequest, "please provide product ID")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), identity.UserID, req.ProductID, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, repository.ErrProductUnavailable):
			h.writeError(w, http.StatusBadRequest, "product is not available")
		case errors.Is(err, repository.ErrInsufficientBalance):
			h.writeError(w, http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "user not found")
		default:
			h.serverError(w, "create order error", err,
				zap.Int64("userID", identity.UserID), zap.Int64("productID", req.ProductID))
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

// GetMyOrders возвращает заказы текущего пользователя.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), identity.UserID)
	if err != nil {
		h.serverError(w, "get orders error", err, zap.Int64("userID", identity.UserID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetAllOrders возвращает все заказы. Только для администратора.
func (h *Handler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAllOrders(r.Context())
	if err != nil {
		h.serverError(w, "get all orders error", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// UpdateOrderStatus переводит заказ в новый статус. Только для администратора.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrderStatus):
			h.writeError(w, http.StatusBadRequest, "invalid order status")
		case errors.Is(err, repository.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, repository.ErrOrderCompleted):
			h.writeError(w, http.StatusBadRequest, "completed order cannot change status")
		default:
			h.serverError(w, "update order status error", err, zap.Int64("orderID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, newOrderResponse(order))
}
