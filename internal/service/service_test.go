package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"vendora/config"
	"vendora/internal/database"
	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/pkg/payment"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "test-webhook-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// In-memory SQLite gives each connection its own database; one connection
	// keeps every query on the same data and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Shop: config.ShopConfig{
			Currency:                 "USD",
			OrderTimeout:             30 * time.Minute,
			CancelGracePeriod:        5 * time.Minute,
			UnderpaymentTolerancePct: 2.0,
			LatePenaltyPct:           5.0,
			UnderpaymentPenaltyPct:   5.0,
			MaxStrikesBeforeBan:      3,
			SweepInterval:            time.Minute,
		},
		Payment: config.PaymentConfig{WebhookBaseURL: "https://shop.test"},
		Webhook: config.WebhookConfig{
			Secret:        testWebhookSecret,
			MaxBodyBytes:  1024,
			RatePerMinute: 10,
			RateBurst:     10,
		},
	}
}

// env bundles everything a service test needs against one database.
type env struct {
	db           *gorm.DB
	cfg          *config.Config
	users        *repository.UserRepository
	products     *repository.ProductRepository
	stockRepo    *repository.StockRepository
	carts        *repository.CartRepository
	orders       *repository.OrderRepository
	invoices     *repository.InvoiceRepository
	transactions *repository.TransactionRepository
	strikes      *repository.StrikeRepository
	wallets      *repository.WalletRepository

	stock     *StockLedger
	ledger    *InvoiceLedger
	penalties *PenaltyEngine
	orderSvc  *OrderService
	webhook   *WebhookProcessor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()

	e := &env{
		db:           db,
		cfg:          cfg,
		users:        repository.NewUserRepository(db),
		products:     repository.NewProductRepository(db),
		stockRepo:    repository.NewStockRepository(db),
		carts:        repository.NewCartRepository(db),
		orders:       repository.NewOrderRepository(db),
		invoices:     repository.NewInvoiceRepository(db),
		transactions: repository.NewTransactionRepository(db),
		strikes:      repository.NewStrikeRepository(db),
		wallets:      repository.NewWalletRepository(db),
	}
	e.stock = NewStockLedger(e.products, e.stockRepo)
	e.ledger = NewInvoiceLedger(e.invoices)
	e.penalties = NewPenaltyEngine(&cfg.Shop, e.strikes, e.users)
	notifier := NewNotificationService(repository.NewNotificationRepository(db), nil)
	e.orderSvc = NewOrderService(db, cfg, &payment.StubProvider{},
		e.stock, e.ledger, e.penalties, notifier,
		e.orders, e.invoices, e.carts, e.wallets, e.users, e.transactions)
	e.webhook = NewWebhookProcessor(cfg, &payment.StubProvider{}, e.orderSvc, e.invoices, e.transactions)
	return e
}

func (e *env) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Username: email, Email: email, Role: domain.RoleCustomer}
	require.NoError(t, e.users.Create(u))
	return u
}

func (e *env) createProduct(t *testing.T, sku, kind string, priceCents int64, qty int) *models.Product {
	t.Helper()
	p := &models.Product{SKU: sku, Name: sku, Kind: kind, PriceCents: priceCents, Currency: "USD", TotalQuantity: qty}
	require.NoError(t, e.products.Create(p))
	return p
}

func (e *env) creditWallet(t *testing.T, userID uint, cents int64) {
	t.Helper()
	_, err := e.wallets.GetOrCreate(userID, "USD")
	require.NoError(t, err)
	require.NoError(t, e.wallets.Credit(userID, cents, domain.WalletTxAdminTopUp, "test"))
}

func (e *env) walletBalance(t *testing.T, userID uint) int64 {
	t.Helper()
	w, err := e.wallets.GetOrCreate(userID, "USD")
	require.NoError(t, err)
	return w.BalanceCents
}

func (e *env) addToCart(t *testing.T, userID, productID uint, qty int) {
	t.Helper()
	require.NoError(t, e.carts.Put(userID, productID, qty))
}

// backdateOrder shifts creation and expiry into the past, to simulate elapsed time.
func (e *env) backdateOrder(t *testing.T, orderID uint, createdAgo, expiresIn time.Duration) {
	t.Helper()
	now := time.Now()
	require.NoError(t, e.db.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"created_at": now.Add(-createdAgo),
			"expires_at": now.Add(expiresIn),
		}).Error)
}

func signPayload(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
