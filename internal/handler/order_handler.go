package handler

import (
	"errors"
	"net/http"
	"strconv"

	"vendora/internal/domain"
	"vendora/internal/middleware"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc          *service.OrderService
	orders       *repository.OrderRepository
	invoices     *repository.InvoiceRepository
	transactions *repository.TransactionRepository
}

func NewOrderHandler(svc *service.OrderService, orders *repository.OrderRepository,
	invoices *repository.InvoiceRepository, transactions *repository.TransactionRepository) *OrderHandler {
	return &OrderHandler{svc: svc, orders: orders, invoices: invoices, transactions: transactions}
}

// Checkout converts the cart into an order and returns the first invoice.
func (h *OrderHandler) Checkout(c *gin.Context) {
	order, invoice, err := h.svc.Checkout(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "invoice": invoice})
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	items, err := h.orders.ListItems(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	invoices, err := h.invoices.History(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	payments, err := h.transactions.ListByOrder(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"items":    items,
		"invoices": invoices,
		"payments": payments,
	})
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.orders.ListByUser(middleware.GetUserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	updated, err := h.svc.Cancel(c.Request.Context(), order.ID, middleware.GetUserID(c), false, "user request")
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": updated})
}

type shippingAddressRequest struct {
	Address string `json:"address" binding:"required,max=512"`
}

func (h *OrderHandler) SetShippingAddress(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	var req shippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.svc.SetShippingAddress(c.Request.Context(), order.ID, middleware.GetUserID(c), req.Address)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": updated})
}

// ActiveInvoice returns the invoice currently awaiting payment, for clients
// polling the payment screen.
func (h *OrderHandler) ActiveInvoice(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	inv, err := h.invoices.ActiveByOrder(order.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// ownOrder loads the path order and enforces ownership; admins go through the
// admin routes instead.
func (h *OrderHandler) ownOrder(c *gin.Context) (order *models.Order, ok bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return nil, false
	}
	o, err := h.orders.GetByID(uint(id))
	if err != nil || o.UserID != middleware.GetUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return nil, false
	}
	return o, true
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	var stockErr *domain.InsufficientStockError
	var stateErr *domain.InvalidOrderStateError
	switch {
	case errors.Is(err, domain.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, domain.ErrOpenOrderExists):
		c.JSON(http.StatusConflict, gin.H{"error": "an open order already exists; pay or cancel it first"})
	case errors.Is(err, domain.ErrUserBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended due to repeated payment failures"})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, domain.ErrInsufficientBalance):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient wallet balance"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient stock",
			"sku":       stockErr.SKU,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": "order is not in a state that allows this action", "status": stateErr.Actual})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
