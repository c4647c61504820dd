package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"vendora/internal/domain"
	"vendora/internal/middleware"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler groups back-office order and user management.
type AdminHandler struct {
	svc       *service.OrderService
	penalties *service.PenaltyEngine
	orders    *repository.OrderRepository
	users     *repository.UserRepository
	strikes   *repository.StrikeRepository
	wallets   *repository.WalletRepository
	settings  *repository.SettingRepository
	audit     *repository.AuditLogRepository
}

func NewAdminHandler(
	svc *service.OrderService,
	penalties *service.PenaltyEngine,
	orders *repository.OrderRepository,
	users *repository.UserRepository,
	strikes *repository.StrikeRepository,
	wallets *repository.WalletRepository,
	settings *repository.SettingRepository,
	audit *repository.AuditLogRepository,
) *AdminHandler {
	return &AdminHandler{
		svc:       svc,
		penalties: penalties,
		orders:    orders,
		users:     users,
		strikes:   strikes,
		wallets:   wallets,
		settings:  settings,
		audit:     audit,
	}
}

func (h *AdminHandler) audited(c *gin.Context, action, resource, resourceID, detail string) {
	adminID := middleware.GetUserID(c)
	_ = h.audit.Create(&models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		Detail:     detail,
	})
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// MarkShipped moves a paid physical order to SHIPPED.
func (h *AdminHandler) MarkShipped(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.MarkShipped(c.Request.Context(), id)
	if err != nil {
		writeAdminOrderError(c, err)
		return
	}
	h.audited(c, "ORDER_SHIPPED", "order", strconv.FormatUint(uint64(id), 10), "")
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type adminCancelRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// Cancel cancels any open order without penalty to the customer.
func (h *AdminHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req adminCancelRequest
	_ = c.ShouldBindJSON(&req)
	order, err := h.svc.Cancel(c.Request.Context(), id, middleware.GetUserID(c), true, req.Reason)
	if err != nil {
		writeAdminOrderError(c, err)
		return
	}
	h.audited(c, "ORDER_CANCELLED_BY_ADMIN", "order", strconv.FormatUint(uint64(id), 10), req.Reason)
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter required"})
		return
	}
	list, err := h.orders.ListByUser(uint(userID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// UserStrikes returns the strike history plus the derived ban state.
func (h *AdminHandler) UserStrikes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.strikes.ListByUser(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load strikes"})
		return
	}
	banned, err := h.penalties.IsBanned(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate ban"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strikes": list, "banned": banned})
}

type strikeExemptRequest struct {
	Exempt bool `json:"exempt"`
}

// SetStrikeExempt toggles ban enforcement for a user. Strikes keep accumulating
// either way.
func (h *AdminHandler) SetStrikeExempt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req strikeExemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.SetStrikeExempt(id, req.Exempt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audited(c, "STRIKE_EXEMPT_SET", "user", strconv.FormatUint(uint64(id), 10), fmt.Sprintf("exempt=%t", req.Exempt))
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type topUpRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,min=1"`
	Reason      string `json:"reason" binding:"max=255"`
}

// TopUpWallet credits a customer's wallet, e.g. for goodwill or support cases.
func (h *AdminHandler) TopUpWallet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.wallets.Credit(id, req.AmountCents, domain.WalletTxAdminTopUp, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credit failed"})
		return
	}
	h.audited(c, "WALLET_TOPUP", "user", strconv.FormatUint(uint64(id), 10),
		fmt.Sprintf("amount_cents=%d reason=%s", req.AmountCents, req.Reason))
	c.JSON(http.StatusOK, gin.H{"message": "credited"})
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	list, err := h.settings.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

type settingRequest struct {
	Key   string `json:"key" binding:"required,max=64"`
	Value string `json:"value" binding:"required,max=512"`
}

func (h *AdminHandler) SetSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settings.Set(req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audited(c, "SETTING_CHANGED", "setting", req.Key, req.Value)
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.audit.List(c.Query("action"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": list})
}

func writeAdminOrderError(c *gin.Context, err error) {
	var stateErr *domain.InvalidOrderStateError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": "order is not in a state that allows this action", "status": stateErr.Actual})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
