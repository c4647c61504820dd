package handler

import (
	"net/http"
	"strconv"

	"vendora/internal/middleware"
	"vendora/internal/repository"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts    *repository.CartRepository
	products *repository.ProductRepository
	stock    *repository.StockRepository
}

func NewCartHandler(carts *repository.CartRepository, products *repository.ProductRepository, stock *repository.StockRepository) *CartHandler {
	return &CartHandler{carts: carts, products: products, stock: stock}
}

type cartPutRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=1000"`
}

// Put sets the quantity for a product in the cart. Stock is only advisory here;
// the binding check happens at checkout under row locks.
func (h *CartHandler) Put(c *gin.Context) {
	var req cartPutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.products.GetByID(req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	reserved, err := h.stock.ReservedQuantity(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "availability check failed"})
		return
	}
	if available := p.TotalQuantity - p.SoldQuantity - reserved; req.Quantity > available {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient stock",
			"sku":       p.SKU,
			"available": available,
			"requested": req.Quantity,
		})
		return
	}
	if err := h.carts.Put(middleware.GetUserID(c), req.ProductID, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
}

func (h *CartHandler) Remove(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	if err := h.carts.Remove(middleware.GetUserID(c), uint(productID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

func (h *CartHandler) List(c *gin.Context) {
	items, err := h.carts.ListByUser(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	var total int64
	for _, it := range items {
		total += it.Product.PriceCents * int64(it.Quantity)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total_cents": total})
}
