package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/gameshop-system/internal/model"
	"github.com/mmeshcher/gameshop-system/internal/repository"
	"github.com/mmeshcher/gameshop-system/internal/service"
)

type topupRequestBody struct {
	Amount float64 `json:"amount"`
}

type topupNotesBody struct {
	Notes string `json:"notes"`
}

// topupResponse — представление заявки на пополнение в API.
// Username и Email заполняются только в административных выборках.
type topupResponse struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id"`
	Amount       float64 `json:"amount"`
	CustomerCode string  `json:"customer_code"`
	Status       string  `json:"status"`
	Notes        *string `json:"notes"`
	ApprovedBy   *int64  `json:"approved_by"`
	ApprovedAt   *string `json:"approved_at"`
	CreatedAt    string  `json:"created_at"`
	Username     string  `json:"username,omitempty"`
	Email        string  `json:"email,omitempty"`
}

func newTopupResponse(req *model.TopupRequest) topupResponse {
	var approvedAt *string
	if req.ApprovedAt != nil {
		v := formatTime(*req.ApprovedAt)
		approvedAt = &v
	}

	return topupResponse{
		ID:           req.ID,
		UserID:       req.UserID,
		Amount:       fromCents(req.AmountCents),
		CustomerCode: req.CustomerCode,
		Status:       string(req.Status),
		Notes:        req.Notes,
		ApprovedBy:   req.ApprovedBy,
		ApprovedAt:   approvedAt,
		CreatedAt:    formatTime(req.CreatedAt),
		Username:     req.Username,
		Email:        req.Email,
	}
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(w, "get balance error", err, zap.Int64("userID", identity.UserID))
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Balance float64 `json:"balance"`
	}{Balance: balance})
}

// CreateTopupRequest создаёт заявку на пополнение баланса.
func (h *Handler) CreateTopupRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req topupRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "top-up amount must be positive")
		return
	}

	created, err := h.service.CreateTopupRequest(r.Context(), identity.UserID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTopupTooSmall):
			h.writeError(w, http.StatusBadRequest, "top-up amount is below the minimum")
		case errors.Is(err, service.ErrCustomerCodeMissing):
			h.writeError(w, http.StatusBadRequest, "customer code not found")
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "user not found")
		default:
			h.serverError(w, "create topup request error", err, zap.Int64("userID", identity.UserID))
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		Message      string  `json:"message"`
		RequestID    int64   `json:"request_id"`
		Amount       float64 `json:"amount"`
		CustomerCode string  `json:"customer_code"`
	}{
		Message:      "top-up request created",
		RequestID:    created.ID,
		Amount:       fromCents(created.AmountCents),
		CustomerCode: created.CustomerCode,
	})
}

// GetMyTopupRequests возвращает заявки текущего пользователя.
func (h *Handler) GetMyTopupRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	requests, err := h.service.GetTopupRequestsByUser(r.Context(), identity.UserID)
	if err != nil {
		h.serverError(w, "get topup requests error", err, zap.Int64("userID", identity.UserID))
		return
	}

	resp := make([]topupResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, newTopupResponse(&requests[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ApproveTopupRequest подтверждает заявку и зачисляет сумму на баланс.
// Только для администратора.
func (h *Handler) ApproveTopupRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	notes, ok := h.decodeNotes(w, r)
	if !ok {
		return
	}

	newBalance, err := h.service.ApproveTopup(r.Context(), id, identity.UserID, notes)
	if err != nil {
		h.topupActionError(w, err, id)
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Message    string  `json:"message"`
		NewBalance float64 `json:"new_balance"`
	}{
		Message:    "top-up request approved",
		NewBalance: newBalance,
	})
}

// RejectTopupRequest отклоняет заявку. Только для администратора.
func (h *Handler) RejectTopupRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	notes, ok := h.decodeNotes(w, r)
	if !ok {
		return
	}

	if err := h.service.RejectTopup(r.Context(), id, identity.UserID, notes); err != nil {
		h.topupActionError(w, err, id)
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: "top-up request rejected"})
}

// decodeNotes читает необязательное тело запроса с примечанием администратора.
func (h *Handler) decodeNotes(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body topupNotesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	return body.Notes, true
}

func (h *Handler) topupActionError(w http.ResponseWriter, err error, id int64) {
	switch {
	case errors.Is(err, repository.ErrTopupNotFound):
		h.writeError(w, http.StatusNotFound, "top-up request not found")
	case errors.Is(err, repository.ErrTopupProcessed):
		h.writeError(w, http.StatusBadRequest, "top-up request already processed")
	case errors.Is(err, repository.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "user not found")
	default:
		h.serverError(w, "process topup request error", err, zap.Int64("requestID", id))
	}
}
