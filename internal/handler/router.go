package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/gameshop-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Get("/me", h.Me)
			})
		})

		r.Route("/products", func(r chi.Router) {
			// Каталог открыт без авторизации, но видимость зависит от роли.
			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Optional)
				r.Get("/", h.ListProducts)
				r.Get("/{id}", h.GetProduct)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware, h.authMiddleware.RequireAdmin)
				r.Post("/", h.CreateProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateOrder)
			r.Get("/my-orders", h.GetMyOrders)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireAdmin)
				r.Get("/all", h.GetAllOrders)
				r.Put("/{id}/status", h.UpdateOrderStatus)
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/balance", h.GetBalance)
			r.Post("/topup-request", h.CreateTopupRequest)
			r.Get("/topup-requests", h.GetMyTopupRequests)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireAdmin)
				r.Post("/topup-requests/{id}/approve", h.ApproveTopupRequest)
				r.Post("/topup-requests/{id}/reject", h.RejectTopupRequest)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware, h.authMiddleware.RequireAdmin)

			r.Get("/stats", h.GetStats)
			r.Get("/users", h.GetUsers)
			r.Put("/users/{id}", h.UpdateUser)
			r.Get("/topup-requests", h.GetAllTopupRequests)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
