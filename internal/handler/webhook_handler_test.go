package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vendora/config"
	"vendora/internal/database"
	"vendora/internal/domain"
	"vendora/internal/middleware"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/internal/service"
	"vendora/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "handler-test-secret"

type webhookFixture struct {
	router  *gin.Engine
	db      *gorm.DB
	audit   *repository.AuditLogRepository
	invoice *models.Invoice
	order   *models.Order
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		Shop: config.ShopConfig{
			Currency:                 "USD",
			OrderTimeout:             30 * time.Minute,
			CancelGracePeriod:        5 * time.Minute,
			UnderpaymentTolerancePct: 2.0,
			LatePenaltyPct:           5.0,
			MaxStrikesBeforeBan:      3,
		},
		Payment: config.PaymentConfig{WebhookBaseURL: "https://shop.test"},
		Webhook: config.WebhookConfig{
			Secret:        testSecret,
			MaxBodyBytes:  1024,
			RatePerMinute: 10,
			RateBurst:     10,
		},
	}

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	transactions := repository.NewTransactionRepository(db)
	strikes := repository.NewStrikeRepository(db)
	wallets := repository.NewWalletRepository(db)
	audit := repository.NewAuditLogRepository(db)

	stock := service.NewStockLedger(products, stockRepo)
	ledger := service.NewInvoiceLedger(invoices)
	penalties := service.NewPenaltyEngine(&cfg.Shop, strikes, users)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), nil)
	orderSvc := service.NewOrderService(db, cfg, &payment.StubProvider{},
		stock, ledger, penalties, notifier,
		orders, invoices, carts, wallets, users, transactions)
	processor := service.NewWebhookProcessor(cfg, &payment.StubProvider{}, orderSvc, invoices, transactions)

	h := NewWebhookHandler(&cfg.Webhook, processor, audit)
	r := gin.New()
	r.POST("/api/v1/webhooks/payment",
		middleware.WebhookRateLimit(cfg.Webhook.RatePerMinute, cfg.Webhook.RateBurst),
		h.HandlePayment)

	// One order awaiting a 10.00 payment.
	u := &models.User{Username: "hbuyer", Email: "hbuyer@example.com", Role: domain.RoleCustomer}
	require.NoError(t, users.Create(u))
	p := &models.Product{SKU: "H-EBOOK", Name: "H-EBOOK", Kind: domain.ProductDigital, PriceCents: 1000, Currency: "USD", TotalQuantity: 5}
	require.NoError(t, products.Create(p))
	require.NoError(t, carts.Put(u.ID, p.ID, 1))
	order, invoice, err := orderSvc.Checkout(context.Background(), u.ID)
	require.NoError(t, err)

	return &webhookFixture{router: r, db: db, audit: audit, invoice: invoice, order: order}
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (f *webhookFixture) post(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func paymentBody(t *testing.T, invoiceNumber, amount, txHash string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"invoice_number":   invoiceNumber,
		"amount":           amount,
		"currency":         "USD",
		"transaction_hash": txHash,
		"confirmations":    2,
	})
	require.NoError(t, err)
	return body
}

func TestWebhookEndpointApplies(t *testing.T) {
	f := newWebhookFixture(t)
	body := paymentBody(t, f.invoice.InvoiceNumber, "10.00", "h-tx-1")

	w := f.post(body, sign(body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "applied")

	// Redelivery acknowledges without reapplying.
	w = f.post(body, sign(body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := paymentBody(t, f.invoice.InvoiceNumber, "10.00", "h-tx-2")

	w := f.post(body, "0000")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The failure is audited with the caller's address.
	entries, err := f.audit.List("WEBHOOK_SIGNATURE_FAILED", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].IP)
}

func TestWebhookEndpointRejectsOversizedBody(t *testing.T) {
	f := newWebhookFixture(t)
	big := bytes.Repeat([]byte("a"), 2048)
	w := f.post(big, sign(big))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEndpointUnknownInvoice(t *testing.T) {
	f := newWebhookFixture(t)
	body := paymentBody(t, "INV-2026-ZZZZZZ", "10.00", "h-tx-3")
	w := f.post(body, sign(body))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookEndpointRateLimits(t *testing.T) {
	f := newWebhookFixture(t)
	body := paymentBody(t, f.invoice.InvoiceNumber, "10.00", "h-tx-4")

	var saw429 bool
	for i := 0; i < 15; i++ {
		w := f.post(body, sign(body))
		if w.Code == http.StatusTooManyRequests {
			saw429 = true
		}
	}
	assert.True(t, saw429, "requests beyond the burst allowance should be throttled")
}
