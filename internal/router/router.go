package router

import (
	"net/http"

	"shopfront/internal/auth"
	"shopfront/internal/handler"
	"shopfront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Deps holds everything the router needs to wire routes.
type Deps struct {
	Orders    *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Callbacks *handler.CallbackHandler
	WS        *handler.WSHandler
	Resolver  auth.Resolver
	Logger    zerolog.Logger
}

// New builds the HTTP router. Provider callbacks and the health check
// are unauthenticated; everything else requires a resolved identity,
// and admin routes additionally require the admin role.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Provider callbacks authenticate by correlation key lookup, not
	// by caller identity.
	r.Post("/api/payments/callbacks/mpesa", deps.Callbacks.Mpesa)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Resolver, deps.Logger))

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", deps.Orders.Create)
			r.Get("/", deps.Orders.List)
			r.Get("/{id}", deps.Orders.Get)
			r.Post("/{id}/cancel", deps.Orders.Cancel)
			r.Post("/{id}/pay", deps.Orders.RetryPayment)
			r.Get("/{id}/invoice", deps.Orders.Invoice)
		})

		r.Post("/api/inventory/availability", deps.Inventory.CheckAvailability)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.Logger))

			r.Put("/orders/{id}/status", deps.Orders.UpdateStatus)
			r.Delete("/orders/{id}", deps.Orders.Delete)
			r.Get("/inventory/{productId}", deps.Inventory.GetStock)
			r.Post("/inventory/{productId}/adjust", deps.Inventory.AdjustStock)
		})

		r.Get("/ws", deps.WS.Subscribe)
	})

	return r
}
