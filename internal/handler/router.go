package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/marios-pizza/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware пиццерии.
// Cookie сессии передаются кросс-доменно только для явного списка источников;
// "*" рассчитан на клиента с того же источника.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.Middleware)

			r.Post("/user/register/check", h.CheckRegistration)
			r.Post("/user/register", h.Register)

			r.Get("/order", h.GetOrder)
			r.Patch("/order", h.UpdateOrder)
			r.Delete("/order", h.ResetOrder)
			r.Put("/order/qty", h.SetQty)
			r.Post("/order/toppings/{id}", h.ToggleTopping)
			r.Put("/order/sides/{id}", h.SetSideQty)
			r.Post("/order/place", h.PlaceOrder)

			r.Get("/receipt", h.GetReceipt)
			r.Get("/receipt/text", h.GetReceiptText)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
