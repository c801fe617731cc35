package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoplane/api/internal/config"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/handler"
	"github.com/shoplane/api/internal/mail"
	mw "github.com/shoplane/api/internal/middleware"
	"github.com/shoplane/api/internal/service"
	"github.com/shoplane/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. Everything
// except /health and the websocket lives under /api.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, sender mail.Sender, otpStore handler.OTPStore) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	customerHandler := handler.NewCustomerHandler(queries, cfg.JWTSecret)
	productHandler := handler.NewProductHandler(queries)
	emailHandler := handler.NewEmailHandler(queries, sender, otpStore, cfg.BaseURL)
	financeHandler := handler.NewFinanceHandler(queries, service.NewFinanceService(queries))
	reportsHandler := handler.NewReportsHandler(queries)

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, cfg.StockPolicy)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		authHandler.RegisterRoutes(r)
		customerHandler.RegisterPublicRoutes(r)
		productHandler.RegisterPublicRoutes(r)
		emailHandler.RegisterPublicRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			authHandler.RegisterProtectedRoutes(r)
			orderHandler.RegisterSharedRoutes(r)
			financeHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCustomer))
				customerHandler.RegisterCustomerRoutes(r)
				orderHandler.RegisterCustomerRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				customerHandler.RegisterAdminRoutes(r)
				productHandler.RegisterAdminRoutes(r)
				orderHandler.RegisterAdminRoutes(r)
				emailHandler.RegisterAdminRoutes(r)
				reportsHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
