package service

import (
	"context"
	"fmt"
	"time"

	"vendora/config"
	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/pkg/logger"
	"vendora/pkg/payment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService is the order lifecycle controller. Every multi-step mutation runs
// inside one gorm transaction; stock, invoice, wallet and strike writes commit
// or roll back together. External processor calls (address generation) always
// happen before the transaction opens so a slow network call never holds a
// stock lock.
type OrderService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider payment.Provider

	stock     *StockLedger
	invoices  *InvoiceLedger
	penalties *PenaltyEngine
	notifier  *NotificationService

	orders       *repository.OrderRepository
	invoiceRepo  *repository.InvoiceRepository
	carts        *repository.CartRepository
	wallets      *repository.WalletRepository
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
}

func NewOrderService(
	db *gorm.DB,
	cfg *config.Config,
	provider payment.Provider,
	stock *StockLedger,
	invoices *InvoiceLedger,
	penalties *PenaltyEngine,
	notifier *NotificationService,
	orders *repository.OrderRepository,
	invoiceRepo *repository.InvoiceRepository,
	carts *repository.CartRepository,
	wallets *repository.WalletRepository,
	users *repository.UserRepository,
	transactions *repository.TransactionRepository,
) *OrderService {
	return &OrderService{
		db:           db,
		cfg:          cfg,
		provider:     provider,
		stock:        stock,
		invoices:     invoices,
		penalties:    penalties,
		notifier:     notifier,
		orders:       orders,
		invoiceRepo:  invoiceRepo,
		carts:        carts,
		wallets:      wallets,
		users:        users,
		transactions: transactions,
	}
}

func (s *OrderService) callbackURL() string {
	return s.cfg.Payment.WebhookBaseURL + "/api/v1/webhooks/payment"
}

// Checkout turns the user's cart into an order: reserves stock, debits the
// wallet portion, and opens the first invoice. Credit-only orders settle
// immediately in the same transaction.
func (s *OrderService) Checkout(ctx context.Context, userID uint) (*models.Order, *models.Invoice, error) {
	banned, err := s.penalties.IsBanned(userID)
	if err != nil {
		return nil, nil, err
	}
	if banned {
		return nil, nil, domain.ErrUserBanned
	}

	cartItems, err := s.carts.ListByUser(userID)
	if err != nil {
		return nil, nil, err
	}
	if len(cartItems) == 0 {
		return nil, nil, domain.ErrCartEmpty
	}

	var (
		total       int64
		hasPhysical bool
		reserve     []ReserveItem
		lines       []models.OrderItem
	)
	for _, ci := range cartItems {
		total += ci.Product.PriceCents * int64(ci.Quantity)
		if ci.Product.Kind == domain.ProductPhysical {
			hasPhysical = true
		}
		reserve = append(reserve, ReserveItem{ProductID: ci.ProductID, SKU: ci.Product.SKU, Quantity: ci.Quantity})
		lines = append(lines, models.OrderItem{
			ProductID:      ci.ProductID,
			SKU:            ci.Product.SKU,
			Quantity:       ci.Quantity,
			UnitPriceCents: ci.Product.PriceCents,
		})
	}

	currency := s.cfg.Shop.Currency
	wallet, err := s.wallets.GetOrCreate(userID, currency)
	if err != nil {
		return nil, nil, err
	}
	walletUse := wallet.BalanceCents
	if walletUse > total {
		walletUse = total
	}
	required := total - walletUse

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}

	invoiceNumber, err := NewInvoiceNumber(time.Now())
	if err != nil {
		return nil, nil, err
	}

	// Address generation is slow external I/O; it must complete before the
	// transaction opens.
	var address *string
	if required > 0 {
		resp, err := s.provider.CreateAddress(ctx, payment.AddressRequest{
			InvoiceNumber:  invoiceNumber,
			Amount:         domain.FormatAmount(required, currency),
			Currency:       currency,
			CallbackURL:    s.callbackURL(),
			IdempotencyKey: uuid.NewString(),
			ExpiresIn:      s.cfg.Shop.OrderTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("payment address generation: %w", err)
		}
		address = &resp.Address
	}

	status := domain.OrderPendingPayment
	if hasPhysical && user.ShippingAddress == "" {
		status = domain.OrderPendingPaymentAndAddress
	}

	var (
		order   *models.Order
		invoice *models.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent checkouts of the same user on the user row,
		// then re-check the one-open-order invariant.
		if _, err := s.users.WithTx(tx).GetForUpdate(userID); err != nil {
			return err
		}
		if open, err := s.orders.WithTx(tx).OpenByUser(userID); err != nil {
			return err
		} else if open != nil {
			return domain.ErrOpenOrderExists
		}

		now := time.Now()
		order = &models.Order{
			UserID:            userID,
			TotalCents:        total,
			WalletCreditCents: walletUse,
			Currency:          currency,
			Status:            status,
			HasPhysical:       hasPhysical,
			ShippingAddress:   user.ShippingAddress,
			ExpiresAt:         now.Add(s.cfg.Shop.OrderTimeout),
		}
		if err := s.orders.WithTx(tx).Create(order); err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := s.orders.WithTx(tx).CreateItems(lines); err != nil {
			return err
		}
		if err := s.stock.Reserve(tx, order.ID, reserve); err != nil {
			return err
		}
		if walletUse > 0 {
			if err := s.wallets.WithTx(tx).Debit(userID, walletUse, domain.WalletTxOrderPayment, fmt.Sprintf("order_%d", order.ID)); err != nil {
				return err
			}
		}
		invoice, err = s.invoices.Open(tx, order, invoiceNumber, required, address, nil)
		if err != nil {
			return err
		}
		if err := s.carts.WithTx(tx).ClearByUser(userID); err != nil {
			return err
		}
		if required == 0 {
			// Fully covered by wallet credit: settle in the same transaction.
			return s.settleTx(tx, order, invoice)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if required == 0 {
		_ = s.notifier.NotifyPaymentReceived(userID, order.ID, total, currency)
	}
	logger.L().Infow("order created", "order_id", order.ID, "user_id", userID,
		"total_cents", total, "wallet_cents", walletUse, "invoice", invoice.InvoiceNumber, "status", order.Status)
	return order, invoice, nil
}

// settleTx performs the full-settlement state change: finalize stock,
// deactivate invoices, move the order to PAID, or straight to
// PAID_AWAITING_SHIPMENT for physical orders since PAID is never a user-visible
// pause. Must run inside the caller's transaction with the order row locked.
func (s *OrderService) settleTx(tx *gorm.DB, order *models.Order, invoice *models.Invoice) error {
	if err := s.stock.Finalize(tx, order.ID); err != nil {
		return err
	}
	if err := s.invoices.DeactivateAll(tx, order.ID); err != nil {
		return err
	}
	to := domain.OrderPaid
	if order.HasPhysical {
		to = domain.OrderPaidAwaitingShipment
	}
	if err := s.orders.WithTx(tx).Transition(order.ID, domain.OpenOrderStatuses, to, nil); err != nil {
		return err
	}
	order.Status = to
	return nil
}

// SettleFullPayment applies a settling payment to an active invoice. The
// PaymentTransaction row is persisted first, in the same transaction as the
// state change, so a crash cannot half-apply the event. A payment landing after
// expires_at but before the sweeper acts is honored with no penalty: completing
// the sale beats cancelling it, and the opportunity cost behind penalties never
// materialized.
func (s *OrderService) SettleFullPayment(ctx context.Context, invoiceID uint, amountCents int64, currency, txHash string, now time.Time) (*models.Order, error) {
	var (
		order    *models.Order
		received *models.PaymentTransaction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.invoiceRepo.WithTx(tx).GetByIDForUpdate(invoiceID)
		if err != nil {
			return err
		}
		if inv.State != domain.InvoiceActive {
			return domain.ErrInvoiceNotFound
		}
		order, err = s.orders.WithTx(tx).GetByIDForUpdate(inv.OrderID)
		if err != nil {
			return err
		}
		if !domain.IsOpenOrderStatus(order.Status) {
			return &domain.InvalidOrderStateError{Expected: domain.OpenOrderStatuses, Actual: order.Status}
		}

		received = &models.PaymentTransaction{
			InvoiceID:   inv.ID,
			OrderID:     order.ID,
			TxHash:      txHash,
			AmountCents: amountCents,
			Currency:    currency,
			Overpayment: amountCents > inv.RequiredCents,
			LatePayment: now.After(order.ExpiresAt),
			ReceivedAt:  now,
		}
		if err := s.transactions.WithTx(tx).Create(received); err != nil {
			return err
		}
		if excess := amountCents - inv.RequiredCents; excess > 0 {
			if err := s.wallets.WithTx(tx).Credit(order.UserID, excess, domain.WalletTxOverpaymentCredit, inv.InvoiceNumber); err != nil {
				return err
			}
		}
		return s.settleTx(tx, order, inv)
	})
	if err != nil {
		return nil, err
	}

	_ = s.notifier.NotifyPaymentReceived(order.UserID, order.ID, amountCents, currency)
	logger.L().Infow("order settled", "order_id", order.ID, "tx_hash", txHash,
		"amount_cents", amountCents, "late", received.LatePayment, "overpaid", received.Overpayment)
	return order, nil
}

// HandleUnderpayment applies a short payment. The first underpayment keeps the
// original invoice active, opens a child invoice for the shortfall (address
// pre-generated by the caller) and extends the deadline. The second cancels the
// order as a system fault: everything received is credited back, no strike.
func (s *OrderService) HandleUnderpayment(ctx context.Context, invoiceID uint, amountCents int64, currency, txHash string, childNumber string, childAddress *string, now time.Time) (*models.Order, error) {
	var (
		order     *models.Order
		child     *models.Invoice
		cancelled bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.invoiceRepo.WithTx(tx).GetByIDForUpdate(invoiceID)
		if err != nil {
			return err
		}
		if inv.State != domain.InvoiceActive {
			return domain.ErrInvoiceNotFound
		}
		order, err = s.orders.WithTx(tx).GetByIDForUpdate(inv.OrderID)
		if err != nil {
			return err
		}
		if !domain.IsOpenOrderStatus(order.Status) {
			return &domain.InvalidOrderStateError{Expected: domain.OpenOrderStatuses, Actual: order.Status}
		}

		if err := s.transactions.WithTx(tx).Create(&models.PaymentTransaction{
			InvoiceID:    inv.ID,
			OrderID:      order.ID,
			TxHash:       txHash,
			AmountCents:  amountCents,
			Currency:     currency,
			Underpayment: true,
			LatePayment:  now.After(order.ExpiresAt),
			ReceivedAt:   now,
		}); err != nil {
			return err
		}

		if order.RetryCount == 0 {
			// First shortfall: retry with a child invoice, original stays
			// active as the record of the partial receipt.
			shortfall := inv.RequiredCents - amountCents
			child, err = s.invoices.Open(tx, order, childNumber, shortfall, childAddress, &inv.ID)
			if err != nil {
				return err
			}
			if err := s.orders.WithTx(tx).IncrementRetryCount(order.ID); err != nil {
				return err
			}
			return s.orders.WithTx(tx).Transition(order.ID, domain.OpenOrderStatuses, domain.OrderPendingPaymentPartial,
				map[string]interface{}{"expires_at": now.Add(s.cfg.Shop.OrderTimeout)})
		}

		// Second shortfall: cancel as system fault, credit back everything
		// received across all invoices plus the wallet portion. No strike.
		cancelled = true
		if err := s.stock.Release(tx, order.ID); err != nil {
			return err
		}
		if err := s.invoices.DeactivateAll(tx, order.ID); err != nil {
			return err
		}
		receivedTotal, err := s.transactions.WithTx(tx).SumReceivedByOrder(order.ID)
		if err != nil {
			return err
		}
		if err := s.wallets.WithTx(tx).Credit(order.UserID, receivedTotal, domain.WalletTxUnderpaymentCredit, fmt.Sprintf("order_%d", order.ID)); err != nil {
			return err
		}
		if err := s.wallets.WithTx(tx).Credit(order.UserID, order.WalletCreditCents, domain.WalletTxRefund, fmt.Sprintf("order_%d", order.ID)); err != nil {
			return err
		}
		return s.orders.WithTx(tx).Transition(order.ID, domain.OpenOrderStatuses, domain.OrderCancelledBySystem, nil)
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		_ = s.notifier.NotifyCancelled(order.UserID, order.ID, order.WalletCreditCents, 0)
		logger.L().Warnw("order cancelled after second underpayment", "order_id", order.ID, "tx_hash", txHash)
	} else {
		_ = s.notifier.NotifyUnderpayment(order.UserID, order.ID, child.RequiredCents, child.InvoiceNumber)
		logger.L().Infow("underpayment retry opened", "order_id", order.ID,
			"child_invoice", child.InvoiceNumber, "shortfall_cents", child.RequiredCents)
	}
	return order, nil
}

// Cancel cancels an open order on behalf of the user or an admin. User
// cancellations past the grace window cost a percentage of the wallet portion
// and a LATE_CANCELLATION strike; admin cancellations are always penalty-free.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorUserID uint, byAdmin bool, reason string) (*models.Order, error) {
	now := time.Now()
	var (
		order   *models.Order
		refund  int64
		penalty int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if !byAdmin && order.UserID != actorUserID {
			return domain.ErrOrderNotFound
		}
		if !domain.IsOpenOrderStatus(order.Status) {
			return &domain.InvalidOrderStateError{Expected: domain.OpenOrderStatuses, Actual: order.Status}
		}

		to := domain.OrderCancelledByUser
		if byAdmin {
			to = domain.OrderCancelledByAdmin
		} else {
			penalty = s.penalties.CancellationPenalty(order, now)
			if !s.penalties.WithinGrace(order, now) {
				orderRef := order.ID
				if err := s.penalties.RecordStrike(tx, order.UserID, domain.StrikeLateCancellation, &orderRef,
					fmt.Sprintf("cancelled %s after creation", now.Sub(order.CreatedAt).Round(time.Second))); err != nil {
					return err
				}
			}
		}

		if err := s.stock.Release(tx, order.ID); err != nil {
			return err
		}
		if err := s.invoices.DeactivateAll(tx, order.ID); err != nil {
			return err
		}
		refund = order.WalletCreditCents
		if refund > 0 {
			if err := s.wallets.WithTx(tx).Credit(order.UserID, refund, domain.WalletTxRefund, fmt.Sprintf("order_%d", order.ID)); err != nil {
				return err
			}
		}
		if penalty > 0 {
			if err := s.wallets.WithTx(tx).Debit(order.UserID, penalty, domain.WalletTxCancelPenalty, fmt.Sprintf("order_%d", order.ID)); err != nil {
				return err
			}
		}
		return s.orders.WithTx(tx).Transition(order.ID, domain.OpenOrderStatuses, to, nil)
	})
	if err != nil {
		return nil, err
	}

	_ = s.notifier.NotifyCancelled(order.UserID, order.ID, refund-penalty, penalty)
	logger.L().Infow("order cancelled", "order_id", order.ID, "by_admin", byAdmin,
		"reason", reason, "refund_cents", refund-penalty, "penalty_cents", penalty)
	return order, nil
}

// Expire forces TIMEOUT on an open order past its deadline. Called by the
// sweeper; a strike is recorded unless the order's whole lifetime still fits
// inside the grace window.
func (s *OrderService) Expire(ctx context.Context, orderID uint, now time.Time) error {
	var (
		order   *models.Order
		expired bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if !domain.IsOpenOrderStatus(order.Status) {
			return &domain.InvalidOrderStateError{Expected: domain.OpenOrderStatuses, Actual: order.Status}
		}
		if now.Before(order.ExpiresAt) {
			// Deadline moved (underpayment retry) since the sweep query ran.
			return nil
		}
		expired = true

		if err := s.stock.Release(tx, order.ID); err != nil {
			return err
		}
		if err := s.invoices.DeactivateAll(tx, order.ID); err != nil {
			return err
		}
		if order.WalletCreditCents > 0 {
			if err := s.wallets.WithTx(tx).Credit(order.UserID, order.WalletCreditCents, domain.WalletTxRefund, fmt.Sprintf("order_%d", order.ID)); err != nil {
				return err
			}
		}
		if !s.penalties.WithinGrace(order, now) {
			orderRef := order.ID
			if err := s.penalties.RecordStrike(tx, order.UserID, domain.StrikeTimeout, &orderRef, "payment deadline passed"); err != nil {
				return err
			}
		}
		return s.orders.WithTx(tx).Transition(order.ID, domain.OpenOrderStatuses, domain.OrderTimeout, nil)
	})
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}
	_ = s.notifier.NotifyTimeout(order.UserID, order.ID)
	logger.L().Infow("order expired", "order_id", order.ID, "user_id", order.UserID)
	return nil
}

// MarkShipped moves PAID_AWAITING_SHIPMENT to SHIPPED. Any other pre-state is
// an InvalidOrderStateError.
func (s *OrderService) MarkShipped(ctx context.Context, orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Transition(orderID, []string{domain.OrderPaidAwaitingShipment}, domain.OrderShipped, nil); err != nil {
			return err
		}
		var err error
		order, err = s.orders.WithTx(tx).GetByID(orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = s.notifier.NotifyShipped(order.UserID, order.ID)
	return order, nil
}

// SetShippingAddress records the address and moves the order out of
// PENDING_PAYMENT_AND_ADDRESS. The address is also saved to the profile for
// future checkouts.
func (s *OrderService) SetShippingAddress(ctx context.Context, orderID, userID uint, address string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return domain.ErrOrderNotFound
		}
		if err := s.orders.WithTx(tx).Transition(orderID, []string{domain.OrderPendingPaymentAndAddress}, domain.OrderPendingPayment,
			map[string]interface{}{"shipping_address": address}); err != nil {
			return err
		}
		order.Status = domain.OrderPendingPayment
		order.ShippingAddress = address
		u, err := s.users.WithTx(tx).GetByID(userID)
		if err != nil {
			return err
		}
		u.ShippingAddress = address
		return s.users.WithTx(tx).Update(u)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
