package domain

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Order statuses. An order is "open" while payment can still arrive for it.
const (
	OrderPendingPayment           = "PENDING_PAYMENT"
	OrderPendingPaymentAndAddress = "PENDING_PAYMENT_AND_ADDRESS"
	OrderPendingPaymentPartial    = "PENDING_PAYMENT_PARTIAL"
	OrderPaid                     = "PAID"
	OrderPaidAwaitingShipment     = "PAID_AWAITING_SHIPMENT"
	OrderShipped                  = "SHIPPED"
	OrderTimeout                  = "TIMEOUT"
	OrderCancelledByUser          = "CANCELLED_BY_USER"
	OrderCancelledByAdmin         = "CANCELLED_BY_ADMIN"
	OrderCancelledBySystem        = "CANCELLED_BY_SYSTEM"
)

// OpenOrderStatuses are the statuses a payment webhook or a cancel may still act on.
var OpenOrderStatuses = []string{
	OrderPendingPayment,
	OrderPendingPaymentAndAddress,
	OrderPendingPaymentPartial,
}

func IsOpenOrderStatus(s string) bool {
	for _, o := range OpenOrderStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// Invoice Moore-automaton states. INACTIVE is absorbing.
const (
	InvoiceActive   = "ACTIVE"
	InvoiceInactive = "INACTIVE"
)

const (
	StrikeTimeout          = "TIMEOUT"
	StrikeLateCancellation = "LATE_CANCELLATION"
)

const (
	ProductDigital  = "DIGITAL"
	ProductPhysical = "PHYSICAL"
)

// Wallet transaction types (positive = credit, negative = debit).
const (
	WalletTxOrderPayment       = "ORDER_PAYMENT"
	WalletTxRefund             = "REFUND"
	WalletTxCancelPenalty      = "CANCEL_PENALTY"
	WalletTxOverpaymentCredit  = "OVERPAYMENT_CREDIT"
	WalletTxUnderpaymentCredit = "UNDERPAYMENT_CREDIT"
	WalletTxAdminTopUp         = "ADMIN_TOPUP"
)

// Notification types emitted on major order transitions.
const (
	NotifPaymentReceived = "PAYMENT_RECEIVED"
	NotifOrderShipped    = "ORDER_SHIPPED"
	NotifOrderCancelled  = "ORDER_CANCELLED"
	NotifOrderTimeout    = "ORDER_TIMEOUT"
	NotifUnderpayment    = "UNDERPAYMENT"
)
