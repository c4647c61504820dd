package router

import (
	"net/http"

	"vendora/config"
	"vendora/internal/handler"
	"vendora/internal/middleware"
	"vendora/internal/ws"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	Products      *handler.ProductHandler
	Cart          *handler.CartHandler
	Orders        *handler.OrderHandler
	Wallet        *handler.WalletHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
	Webhook       *handler.WebhookHandler
}

func Setup(cfg *config.Config, h Handlers, hub *ws.Hub) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.GET("/auth/google", h.Auth.GoogleLogin)
	api.GET("/auth/google/callback", h.Auth.GoogleCallback)

	// Settlement webhook: rate limited per IP, authenticated by HMAC not JWT.
	api.POST("/webhooks/payment",
		middleware.WebhookRateLimit(cfg.Webhook.RatePerMinute, cfg.Webhook.RateBurst),
		h.Webhook.HandlePayment)

	// Authenticated
	authed := api.Group("")
	authed.Use(middleware.AuthRequired(&cfg.JWT))
	{
		authed.GET("/me", h.Auth.Me)
		authed.PUT("/me", h.Auth.UpdateProfile)

		// Product lookups are for building carts, not a browsing surface.
		authed.GET("/products", h.Products.List)
		authed.GET("/products/:id", h.Products.Get)

		authed.GET("/cart", h.Cart.List)
		authed.PUT("/cart", h.Cart.Put)
		authed.DELETE("/cart/:productId", h.Cart.Remove)

		authed.POST("/orders", h.Orders.Checkout)
		authed.GET("/orders", h.Orders.ListMine)
		authed.GET("/orders/:id", h.Orders.Get)
		authed.POST("/orders/:id/cancel", h.Orders.Cancel)
		authed.PUT("/orders/:id/shipping-address", h.Orders.SetShippingAddress)
		authed.GET("/orders/:id/invoice", h.Orders.ActiveInvoice)

		authed.GET("/wallet", h.Wallet.Balance)
		authed.GET("/wallet/transactions", h.Wallet.Transactions)

		authed.GET("/notifications", h.Notifications.List)
		authed.POST("/notifications/:id/read", h.Notifications.MarkRead)
	}

	// Order event feed; token passed as query param because browsers cannot set
	// headers on websocket upgrades.
	api.GET("/ws/events", ws.UpgradeEventsWS(&cfg.JWT, hub))

	// Admin
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(&cfg.JWT), middleware.AdminRequired())
	{
		admin.POST("/products", h.Products.Create)
		admin.PUT("/products/:id", h.Products.Update)
		admin.POST("/products/:id/image", h.Products.UploadImage)

		admin.GET("/orders", h.Admin.ListOrders)
		admin.POST("/orders/:id/ship", h.Admin.MarkShipped)
		admin.POST("/orders/:id/cancel", h.Admin.Cancel)

		admin.GET("/users/:id/strikes", h.Admin.UserStrikes)
		admin.PUT("/users/:id/strike-exempt", h.Admin.SetStrikeExempt)
		admin.POST("/users/:id/wallet/topup", h.Admin.TopUpWallet)

		admin.GET("/settings", h.Admin.GetSettings)
		admin.PUT("/settings", h.Admin.SetSetting)
		admin.GET("/audit", h.Admin.ListAudit)
	}

	return r
}
