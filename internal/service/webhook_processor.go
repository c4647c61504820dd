package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"vendora/config"
	"vendora/internal/domain"
	"vendora/internal/repository"
	"vendora/pkg/logger"
	"vendora/pkg/payment"

	"github.com/google/uuid"
)

// Outcome classifies the result of a webhook delivery for the HTTP layer.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeBadPayload
	OutcomeBadSignature
	OutcomeInvoiceNotFound
)

// WebhookPayload is the processor's settlement notification.
type WebhookPayload struct {
	InvoiceNumber   string `json:"invoice_number"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	TransactionHash string `json:"transaction_hash"`
	Confirmations   int    `json:"confirmations"`
}

// WebhookProcessor verifies, deduplicates and applies payment notifications.
// Verification happens on the raw body before any parsing; application is
// delegated to the order service so every state change shares its transaction
// discipline.
type WebhookProcessor struct {
	cfg          *config.Config
	provider     payment.Provider
	orders       *OrderService
	invoices     *repository.InvoiceRepository
	transactions *repository.TransactionRepository
}

func NewWebhookProcessor(cfg *config.Config, provider payment.Provider, orders *OrderService,
	invoices *repository.InvoiceRepository, transactions *repository.TransactionRepository) *WebhookProcessor {
	return &WebhookProcessor{cfg: cfg, provider: provider, orders: orders, invoices: invoices, transactions: transactions}
}

// VerifySignature checks the hex HMAC of the raw body in constant time.
// SHA-256 is the current scheme; SHA-1 is accepted for processors still on the
// legacy header format.
func (p *WebhookProcessor) VerifySignature(body []byte, signature string) bool {
	if signature == "" || p.cfg.Webhook.Secret == "" {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.cfg.Webhook.Secret))
	mac.Write(body)
	if hmac.Equal(sig, mac.Sum(nil)) {
		return true
	}
	legacy := hmac.New(sha1.New, []byte(p.cfg.Webhook.Secret))
	legacy.Write(body)
	return hmac.Equal(sig, legacy.Sum(nil))
}

// Process applies one verified delivery. Safe to call with the same body any
// number of times: replays are detected by transaction hash and return
// OutcomeDuplicate without touching state.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if !p.VerifySignature(body, signature) {
		return OutcomeBadSignature, domain.ErrSignatureInvalid
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return OutcomeBadPayload, err
	}
	if payload.InvoiceNumber == "" || payload.TransactionHash == "" || payload.Amount == "" {
		return OutcomeBadPayload, errors.New("missing required fields")
	}
	amountCents, err := domain.ParseAmount(payload.Amount, payload.Currency)
	if err != nil {
		return OutcomeBadPayload, err
	}

	// Fast path for redeliveries. The unique index on tx_hash inside the
	// settlement transaction still catches the race this check can miss.
	if seen, err := p.transactions.GetByHash(payload.TransactionHash); err != nil {
		return OutcomeBadPayload, err
	} else if seen != nil {
		return OutcomeDuplicate, nil
	}

	inv, err := p.invoices.GetByNumber(payload.InvoiceNumber, false)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return OutcomeInvoiceNotFound, err
		}
		return OutcomeBadPayload, err
	}

	now := time.Now()
	if domain.CoversRequired(amountCents, inv.RequiredCents, p.cfg.Shop.UnderpaymentTolerancePct) {
		_, err = p.orders.SettleFullPayment(ctx, inv.ID, amountCents, payload.Currency, payload.TransactionHash, now)
		return p.outcomeFor(err)
	}

	// Underpayment. A retry invoice may need a fresh address, which must be
	// fetched before the settlement transaction opens. Harmless if the order
	// turns out to be on its second strike; the number is simply discarded.
	childNumber, err := NewInvoiceNumber(now)
	if err != nil {
		return OutcomeBadPayload, err
	}
	var childAddress *string
	shortfall := inv.RequiredCents - amountCents
	if shortfall > 0 {
		resp, err := p.provider.CreateAddress(ctx, payment.AddressRequest{
			InvoiceNumber:  childNumber,
			Amount:         domain.FormatAmount(shortfall, inv.Currency),
			Currency:       inv.Currency,
			CallbackURL:    p.cfg.Payment.WebhookBaseURL + "/api/v1/webhooks/payment",
			IdempotencyKey: uuid.NewString(),
			ExpiresIn:      p.cfg.Shop.OrderTimeout,
		})
		if err != nil {
			logger.L().Errorw("retry address generation failed", "invoice", payload.InvoiceNumber, "error", err)
			return OutcomeBadPayload, err
		}
		childAddress = &resp.Address
	}
	_, err = p.orders.HandleUnderpayment(ctx, inv.ID, amountCents, payload.Currency, payload.TransactionHash, childNumber, childAddress, now)
	return p.outcomeFor(err)
}

func (p *WebhookProcessor) outcomeFor(err error) (Outcome, error) {
	switch {
	case err == nil:
		return OutcomeApplied, nil
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return OutcomeDuplicate, nil
	case errors.Is(err, domain.ErrInvoiceNotFound), errors.Is(err, domain.ErrOrderNotFound):
		return OutcomeInvoiceNotFound, err
	default:
		var stateErr *domain.InvalidOrderStateError
		if errors.As(err, &stateErr) {
			// Invoice resolved but the order already left the open set; treat
			// like an unknown invoice so the processor stops retrying.
			return OutcomeInvoiceNotFound, err
		}
		return OutcomeBadPayload, err
	}
}
