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

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	Balance      float64 `json:"balance"`
	CustomerCode string  `json:"customer_code"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         string(u.Role),
		Balance:      fromCents(u.BalanceCents),
		CustomerCode: u.CustomerCode,
	}
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "please provide all fields")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		h.serverError(w, "register user error", err, zap.String("email", req.Email))
		return
	}

	token, err := h.authMiddleware.IssueToken(u)
	if err != nil {
		h.serverError(w, "issue token error", err, zap.Int64("userID", u.ID))
		return
	}

	h.writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  newUserResponse(u),
	})
}

// Login выполняет аутентификацию пользователя и выдачу токена.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "please provide email and password")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		h.serverError(w, "login user error", err, zap.String("email", req.Email))
		return
	}

	token, err := h.authMiddleware.IssueToken(u)
	if err != nil {
		h.serverError(w, "issue token error", err, zap.Int64("userID", u.ID))
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  newUserResponse(u),
	})
}

// Me возвращает профиль текущего пользователя с актуальным балансом.
// Данные перечитываются из БД, а не берутся из токена.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(w, "get user error", err, zap.Int64("userID", identity.UserID))
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		User userResponse `json:"user"`
	}{User: newUserResponse(u)})
}
