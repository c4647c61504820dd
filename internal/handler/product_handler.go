package handler

import (
	"net/http"
	"strconv"

	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/pkg/cloudinary"
	"vendora/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductHandler struct {
	products *repository.ProductRepository
	stock    *repository.StockRepository
	media    cloudinary.Client
}

func NewProductHandler(products *repository.ProductRepository, stock *repository.StockRepository, media cloudinary.Client) *ProductHandler {
	return &ProductHandler{products: products, stock: stock, media: media}
}

type productView struct {
	models.Product
	Available int `json:"available"`
}

func (h *ProductHandler) view(p models.Product) productView {
	reserved, err := h.stock.ReservedQuantity(p.ID)
	if err != nil {
		reserved = 0
	}
	available := p.TotalQuantity - p.SoldQuantity - reserved
	if available < 0 {
		available = 0
	}
	return productView{Product: p, Available: available}
}

func (h *ProductHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.products.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}
	views := make([]productView, 0, len(list))
	for _, p := range list {
		views = append(views, h.view(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views})
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	p, err := h.products.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": h.view(*p)})
}

type productRequest struct {
	SKU           string `json:"sku" binding:"required,max=64"`
	Name          string `json:"name" binding:"required,max=255"`
	Kind          string `json:"kind" binding:"required,oneof=DIGITAL PHYSICAL"`
	PriceCents    int64  `json:"price_cents" binding:"required,min=1"`
	Currency      string `json:"currency"`
	TotalQuantity int    `json:"total_quantity" binding:"min=0"`
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &models.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Kind:          req.Kind,
		PriceCents:    req.PriceCents,
		Currency:      req.Currency,
		TotalQuantity: req.TotalQuantity,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if err := h.products.Create(p); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "sku already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	p, err := h.products.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind != domain.ProductDigital && req.Kind != domain.ProductPhysical {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product kind"})
		return
	}
	p.SKU = req.SKU
	p.Name = req.Name
	p.Kind = req.Kind
	p.PriceCents = req.PriceCents
	if req.Currency != "" {
		p.Currency = req.Currency
	}
	p.TotalQuantity = req.TotalQuantity
	if err := h.products.Update(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// UploadImage accepts a multipart image, stores it on the CDN and records the
// delivery URL on the product.
func (h *ProductHandler) UploadImage(c *gin.Context) {
	if h.media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media uploads not configured"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	p, err := h.products.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read image"})
		return
	}
	defer file.Close()

	url, _, err := h.media.UploadImage(c.Request.Context(), file, "products", uuid.NewString())
	if err != nil {
		logger.L().Errorw("image upload failed", "product_id", p.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	p.ImageURL = url
	if err := h.products.Update(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
