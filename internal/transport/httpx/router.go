package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/crm/internal/health"
)

// NewRouter собирает маршруты CRM API. healthHandler может быть nil.
func NewRouter(handler *Handler, healthHandler *health.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if healthHandler != nil {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/health/live", health.LivenessHandler)
		r.Get("/health/ready", healthHandler.ReadinessHandler)
	}

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/", handler.ListOrders)
		r.Get("/{id}", handler.GetOrder)
		r.Patch("/{id}", handler.UpdateOrder)
		r.Patch("/{id}/status", handler.UpdateOrderStatus)
		r.Delete("/{id}", handler.DeleteOrder)
		r.Get("/{id}/history", handler.OrderHistory)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", handler.CreateCustomer)
		r.Get("/", handler.ListCustomers)
		r.Get("/{id}", handler.GetCustomer)
		r.Put("/{id}", handler.UpdateCustomer)
		r.Delete("/{id}", handler.DeleteCustomer)
		r.Get("/{id}/recommendations", handler.RecommendProducts)
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", handler.CreateProduct)
		r.Get("/", handler.ListProducts)
		r.Get("/{id}", handler.GetProduct)
		r.Put("/{id}", handler.UpdateProduct)
		r.Delete("/{id}", handler.DeleteProduct)
	})

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", handler.CreateLead)
		r.Get("/", handler.ListLeads)
		r.Get("/{id}", handler.GetLead)
		r.Put("/{id}", handler.UpdateLead)
		r.Delete("/{id}", handler.DeleteLead)
		r.Post("/{id}/score", handler.ScoreLead)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Get("/health", handler.AIHealth)
		r.Post("/segment-customers", handler.SegmentCustomers)
	})

	return r
}
