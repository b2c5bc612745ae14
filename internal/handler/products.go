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

type productRequest struct {
	GameName      string   `json:"game_name"`
	AccountLevel  string   `json:"account_level"`
	Price         float64  `json:"price"`
	ImportPrice   float64  `json:"import_price"`
	Description   string   `json:"description"`
	AccountInfo   string   `json:"account_info"`
	FeaturedImage string   `json:"featured_image"`
	Images        []string `json:"images"`
	Status        string   `json:"status"`
}

func (req productRequest) toInput() service.ProductInput {
	return service.ProductInput{
		GameName:      req.GameName,
		AccountLevel:  req.AccountLevel,
		Price:         req.Price,
		ImportPrice:   req.ImportPrice,
		Description:   req.Description,
		AccountInfo:   req.AccountInfo,
		FeaturedImage: req.FeaturedImage,
		Images:        req.Images,
		Status:        req.Status,
	}
}

// productResponse — представление товара в API. AccountInfo и ImportPrice
// заполняются только для администратора.
type productResponse struct {
	ID            int64    `json:"id"`
	GameName      string   `json:"game_name"`
	AccountLevel  string   `json:"account_level"`
	Price         float64  `json:"price"`
	ImportPrice   *float64 `json:"import_price,omitempty"`
	Description   string   `json:"description"`
	AccountInfo   *string  `json:"account_info,omitempty"`
	FeaturedImage *string  `json:"featured_image"`
	Images        []string `json:"images"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at"`
}

func newProductResponse(p *model.Product, asAdmin bool) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}

	resp := productResponse{
		ID:            p.ID,
		GameName:      p.GameName,
		AccountLevel:  p.AccountLevel,
		Price:         fromCents(p.PriceCents),
		Description:   p.Description,
		FeaturedImage: p.FeaturedImage,
		Images:        images,
		Status:        string(p.Status),
		CreatedAt:     formatTime(p.CreatedAt),
	}

	if asAdmin {
		importPrice := fromCents(p.ImportPriceCents)
		resp.ImportPrice = &importPrice
		accountInfo := p.AccountInfo
		resp.AccountInfo = &accountInfo
	}

	return resp
}

// ListProducts возвращает каталог товаров с учётом роли запрашивающего.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	asAdmin := isAdmin(r)

	products, err := h.service.ListProducts(r.Context(), asAdmin)
	if err != nil {
		h.serverError(w, "list products error", err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i], asAdmin))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает один товар с учётом роли запрашивающего.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	asAdmin := isAdmin(r)

	p, err := h.service.GetProduct(r.Context(), id, asAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.serverError(w, "get product error", err, zap.Int64("productID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newProductResponse(p, asAdmin))
}

// CreateProduct создаёт новый товар. Только для администратора.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		if isProductValidationErr(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, "create product error", err, zap.String("gameName", req.GameName))
		return
	}

	h.writeJSON(w, http.StatusCreated, newProductResponse(p, true))
}

// UpdateProduct обновляет товар. Только для администратора.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, req.toInput())
	if err != nil {
		if isProductValidationErr(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.serverError(w, "update product error", err, zap.Int64("productID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, newProductResponse(p, true))
}

// DeleteProduct удаляет товар. Только для администратора.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.serverError(w, "delete product error", err, zap.Int64("productID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: "product deleted successfully"})
}

func isProductValidationErr(err error) bool {
	return errors.Is(err, service.ErrGameNameRequired) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidProductStatus)
}
