package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/services"
)

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	productService *services.ProductService
	orderService   *services.OrderService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *services.ProductService, orderService *services.OrderService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		orderService:   orderService,
	}
}

// ProductRequest is the incoming catalog product payload.
type ProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Weight      float64         `json:"weight"`
}

// AddProductsRequest attaches catalog products to an order.
type AddProductsRequest struct {
	OrderID    int64       `json:"order_id" binding:"required"`
	ProductIDs []uuid.UUID `json:"product_ids" binding:"required"`
}

// HandleCreateProduct handles PUT /product/create-product. The verb is
// PUT for historical reasons; the admin frontend depends on it.
func (h *ProductHandler) HandleCreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.productService.Create(c.Request.Context(), &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Weight:      req.Weight,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// HandleGetProducts handles GET /product/get-products
func (h *ProductHandler) HandleGetProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// HandleRemoveProduct handles DELETE /product/remove-product/:productId
func (h *ProductHandler) HandleRemoveProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleAddProducts handles POST /product/add-products
func (h *ProductHandler) HandleAddProducts(c *gin.Context) {
	var req AddProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orderService.AttachProducts(c.Request.Context(), req.OrderID, req.ProductIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleGetOrderProducts handles GET /product/get-products/:orderId and
// returns the order's snapshot line items, not live catalog data.
func (h *ProductHandler) HandleGetOrderProducts(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	views, err := h.orderService.OrderItems(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// RegisterRoutes registers the handler's routes
func (h *ProductHandler) RegisterRoutes(router *gin.Engine) {
	product := router.Group("/product")
	product.PUT("/create-product", h.HandleCreateProduct)
	product.GET("/get-products", h.HandleGetProducts)
	product.DELETE("/remove-product/:productId", h.HandleRemoveProduct)
	product.POST("/add-products", h.HandleAddProducts)
	product.GET("/get-products/:orderId", h.HandleGetOrderProducts)
}
