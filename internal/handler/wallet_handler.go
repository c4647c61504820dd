package handler

import (
	"net/http"

	"vendora/internal/middleware"
	"vendora/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets  *repository.WalletRepository
	currency string
}

func NewWalletHandler(wallets *repository.WalletRepository, currency string) *WalletHandler {
	return &WalletHandler{wallets: wallets, currency: currency}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	w, err := h.wallets.GetOrCreate(middleware.GetUserID(c), h.currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.wallets.ListTransactions(middleware.GetUserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}
