package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafal-store/rafal-backend/api/controllers"
	"github.com/rafal-store/rafal-backend/api/middleware"
	"github.com/rafal-store/rafal-backend/internal/cart"
	"github.com/rafal-store/rafal-backend/internal/catalog"
	checkoutsvc "github.com/rafal-store/rafal-backend/internal/checkout"
	"github.com/rafal-store/rafal-backend/internal/orders"
	paymentsvc "github.com/rafal-store/rafal-backend/internal/payments"
	usersvc "github.com/rafal-store/rafal-backend/internal/users"
	webhooksvc "github.com/rafal-store/rafal-backend/internal/webhooks"
	"github.com/rafal-store/rafal-backend/pkg/auth/session"
	"github.com/rafal-store/rafal-backend/pkg/config"
	"github.com/rafal-store/rafal-backend/pkg/db"
	"github.com/rafal-store/rafal-backend/pkg/logger"
	"github.com/rafal-store/rafal-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	Users    usersvc.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Payments paymentsvc.Service
	Webhooks webhooksvc.Service
}

// NewRouter wires middleware and routes for the storefront API.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.SessionKey,
	)

	requireAuth := middleware.Auth(cfg.JWT, p.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, p.Sessions, logg)
	idempotency := middleware.Idempotency(p.Redis, logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paymob", controllers.PaymobWebhook(p.Webhooks, logg))
		r.Post("/fawry", controllers.FawryWebhook(p.Webhooks, logg))
		r.Post("/aman", controllers.AmanWebhook(p.Webhooks, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg), idempotency).
			Post("/register", controllers.AuthRegister(p.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
			Post("/login", controllers.AuthLogin(p.Users, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Users, logg))
		r.Post("/logout", controllers.AuthLogout(p.Users, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(p.Catalog, logg))
		r.Get("/{slug}", controllers.ProductGet(p.Catalog, logg))
		r.Get("/{productID}/reviews", controllers.ReviewsList(p.Catalog, logg))
		r.With(requireAuth).Post("/{productID}/reviews", controllers.ReviewSubmit(p.Catalog, logg))
	})
	r.Get("/api/v1/categories", controllers.CategoriesList(p.Catalog, logg))

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.WishlistList(p.Catalog, logg))
		r.Post("/{productID}", controllers.WishlistAdd(p.Catalog, logg))
		r.Delete("/{productID}", controllers.WishlistRemove(p.Catalog, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", controllers.CartGet(p.Cart, logg))
		r.Post("/items", controllers.CartAddItem(p.Cart, logg))
		r.Patch("/items/{itemID}", controllers.CartUpdateItem(p.Cart, logg))
		r.Delete("/items/{itemID}", controllers.CartRemoveItem(p.Cart, logg))
		r.Delete("/", controllers.CartClear(p.Cart, logg))
		r.With(requireAuth).Post("/merge", controllers.CartMerge(p.Cart, logg))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(optionalAuth, idempotency)
		r.Post("/", controllers.Checkout(p.Checkout, logg))
		r.Post("/direct", controllers.CheckoutDirect(p.Checkout, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.OrdersList(p.Orders, logg))
		r.Get("/{orderID}", controllers.OrderGet(p.Orders, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(idempotency).Post("/{provider}/{orderID}/process", controllers.PaymentProcess(p.Payments, logg))
		r.Get("/{provider}/{orderID}/verify", controllers.PaymentVerify(p.Payments, logg))
	})

	r.Route("/api/v1/profile", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.ProfileGet(p.Users, logg))
		r.Patch("/", controllers.ProfileUpdate(p.Users, logg))
		r.Get("/addresses", controllers.AddressesList(p.Users, logg))
		r.Post("/addresses", controllers.AddressCreate(p.Users, logg))
		r.Put("/addresses/{addressID}", controllers.AddressUpdate(p.Users, logg))
		r.Delete("/addresses/{addressID}", controllers.AddressDelete(p.Users, logg))
	})

	return r
}
