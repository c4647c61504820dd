package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendora/config"
	"vendora/internal/database"
	"vendora/internal/handler"
	"vendora/internal/repository"
	"vendora/internal/router"
	"vendora/internal/service"
	"vendora/internal/ws"
	"vendora/pkg/cloudinary"
	"vendora/pkg/logger"
	"vendora/pkg/payment"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Server.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.L().Fatalw("database connection failed", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.L().Fatalw("migration failed", "error", err)
	}

	var provider payment.Provider
	if cfg.Payment.UseStub {
		logger.L().Warn("payment processor API key not set, using stub provider")
		provider = &payment.StubProvider{}
	} else {
		provider = payment.NewHTTPProvider(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.APISecret)
	}

	var media cloudinary.Client
	if cfg.Media.CloudName != "" {
		media, err = cloudinary.NewClientFromParams(cfg.Media.CloudName, cfg.Media.APIKey, cfg.Media.APISecret)
		if err != nil {
			logger.L().Fatalw("cloudinary init failed", "error", err)
		}
	}

	// Repositories
	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	stock := repository.NewStockRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	transactions := repository.NewTransactionRepository(db)
	strikes := repository.NewStrikeRepository(db)
	wallets := repository.NewWalletRepository(db)
	notifications := repository.NewNotificationRepository(db)
	settings := repository.NewSettingRepository(db)
	audit := repository.NewAuditLogRepository(db)

	// Services
	hub := ws.NewHub()
	stockLedger := service.NewStockLedger(products, stock)
	invoiceLedger := service.NewInvoiceLedger(invoices)
	penalties := service.NewPenaltyEngine(&cfg.Shop, strikes, users)
	notifier := service.NewNotificationService(notifications, hub)
	orderSvc := service.NewOrderService(db, cfg, provider,
		stockLedger, invoiceLedger, penalties, notifier,
		orders, invoices, carts, wallets, users, transactions)
	webhookProc := service.NewWebhookProcessor(cfg, provider, orderSvc, invoices, transactions)
	authSvc := service.NewAuthService(cfg, users, wallets)

	sweeper := service.NewTimeoutSweeper(orders, orderSvc, cfg.Shop.SweepInterval)
	sweeper.Start()

	handlers := router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc, users),
		Products:      handler.NewProductHandler(products, stock, media),
		Cart:          handler.NewCartHandler(carts, products, stock),
		Orders:        handler.NewOrderHandler(orderSvc, orders, invoices, transactions),
		Wallet:        handler.NewWalletHandler(wallets, cfg.Shop.Currency),
		Notifications: handler.NewNotificationHandler(notifications),
		Admin:         handler.NewAdminHandler(orderSvc, penalties, orders, users, strikes, wallets, settings, audit),
		Webhook:       handler.NewWebhookHandler(&cfg.Webhook, webhookProc, audit),
	}

	engine := router.Setup(cfg, handlers, hub)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.L().Infow("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down")
	sweeper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Errorw("shutdown incomplete", "error", err)
	}
}
