package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/eshop/services/orders/internal/metrics"
	"example.com/eshop/services/orders/internal/models"
	"example.com/eshop/services/orders/internal/services"
	"example.com/eshop/services/orders/internal/tracing"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService  *services.OrderService
	exportService *services.ExportService
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	orderService *services.OrderService,
	exportService *services.ExportService,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		exportService: exportService,
		metrics:       collector,
		tracer:        tracer,
	}
}

// OrderRequest is the incoming order payload.
type OrderRequest struct {
	OrderNumber    int64           `json:"order_number"`
	CustomerName   string          `json:"customer_name"`
	Company        string          `json:"company"`
	ICO            string          `json:"ico"`
	DIC            string          `json:"dic"`
	ICDPH          string          `json:"ic_dph"`
	Street         string          `json:"street"`
	City           string          `json:"city"`
	PostalCode     string          `json:"postal_code"`
	Country        string          `json:"country"`
	Email          string          `json:"email"`
	PhoneNumber    string          `json:"phone_number"`
	DeliveryOption string          `json:"delivery_option"`
	DeliveryPrice  decimal.Decimal `json:"delivery_price"`
	PaymentOption  string          `json:"payment_option"`
	PaymentPrice   decimal.Decimal `json:"payment_price"`
	Discount       int             `json:"discount"`
	Note           string          `json:"note"`
	Status         string          `json:"order_status"`
	OrderDate      string          `json:"order_date"`
	TotalPrice     decimal.Decimal `json:"total_price"`

	InvoiceNumber     string `json:"invoice_number"`
	VariableSymbol    string `json:"variable_symbol"`
	InvoiceIssueDate  string `json:"invoice_issue_date"`
	InvoiceName       string `json:"invoice_name"`
	InvoiceCompany    string `json:"invoice_company"`
	InvoiceICO        string `json:"invoice_ico"`
	InvoiceDIC        string `json:"invoice_dic"`
	InvoiceStreet     string `json:"invoice_street"`
	InvoiceCity       string `json:"invoice_city"`
	InvoicePostalCode string `json:"invoice_postal_code"`

	PackageCode *string `json:"package_code"`
}

func (r *OrderRequest) toModel() *models.Order {
	return &models.Order{
		OrderNumber:       r.OrderNumber,
		CustomerName:      r.CustomerName,
		Company:           r.Company,
		ICO:               r.ICO,
		DIC:               r.DIC,
		ICDPH:             r.ICDPH,
		Street:            r.Street,
		City:              r.City,
		PostalCode:        r.PostalCode,
		Country:           r.Country,
		Email:             r.Email,
		PhoneNumber:       r.PhoneNumber,
		DeliveryOption:    r.DeliveryOption,
		DeliveryPrice:     r.DeliveryPrice,
		PaymentOption:     r.PaymentOption,
		PaymentPrice:      r.PaymentPrice,
		Discount:          r.Discount,
		Note:              r.Note,
		Status:            r.Status,
		OrderDate:         r.OrderDate,
		TotalPrice:        r.TotalPrice,
		InvoiceNumber:     r.InvoiceNumber,
		VariableSymbol:    r.VariableSymbol,
		InvoiceIssueDate:  r.InvoiceIssueDate,
		InvoiceName:       r.InvoiceName,
		InvoiceCompany:    r.InvoiceCompany,
		InvoiceICO:        r.InvoiceICO,
		InvoiceDIC:        r.InvoiceDIC,
		InvoiceStreet:     r.InvoiceStreet,
		InvoiceCity:       r.InvoiceCity,
		InvoicePostalCode: r.InvoicePostalCode,
		PackageCode:       r.PackageCode,
	}
}

// OrderBatchRequest selects orders for a batch operation.
type OrderBatchRequest struct {
	OrderIDs []int64 `json:"order_ids" binding:"required"`
}

// CopyOrdersRequest selects orders to copy under a new order date.
type CopyOrdersRequest struct {
	OrderIDs     []int64 `json:"order_ids" binding:"required"`
	NewOrderDate string  `json:"new_order_date" binding:"required"`
}

// ChangeStatusRequest sets a new status label on the selected orders.
type ChangeStatusRequest struct {
	OrderIDs  []int64 `json:"order_ids" binding:"required"`
	NewStatus string  `json:"new_status" binding:"required"`
}

// HandleCreateOrder handles POST /order/create-order
func (h *OrderHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req.toModel())
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.IncrementCounter("orders_created")
	h.tracer.AddAttribute(txn, "order_number", order.OrderNumber)
	c.JSON(http.StatusCreated, order)
}

// HandleGetOrders handles GET /order/get-orders
func (h *OrderHandler) HandleGetOrders(c *gin.Context) {
	summaries, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// HandleGetOrderDetails handles GET /order/get-order-details/:orderId
func (h *OrderHandler) HandleGetOrderDetails(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleUpdateOrder handles PUT /order/update-order/:orderId
func (h *OrderHandler) HandleUpdateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-order")
	defer h.tracer.EndTransaction(txn)

	number, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), number, req.toModel())
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleDeleteOrder handles DELETE /order/delete-order/:id
func (h *OrderHandler) HandleDeleteOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleCopyOrders handles POST /order/copy-orders
func (h *OrderHandler) HandleCopyOrders(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-copy-orders")
	defer h.tracer.EndTransaction(txn)

	var req CopyOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	copies, err := h.orderService.CopyOrders(c.Request.Context(), req.OrderIDs, req.NewOrderDate)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.IncrementCounter("orders_copied")
	c.JSON(http.StatusOK, gin.H{"success": true, "copied": len(copies)})
}

// HandleChangeOrderStatus handles PUT /order/change-order-status
func (h *OrderHandler) HandleChangeOrderStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orderService.ChangeOrderStatus(c.Request.Context(), req.OrderIDs, req.NewStatus); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleRemoveSelectedOrders handles DELETE /order/remove-selected-orders
func (h *OrderHandler) HandleRemoveSelectedOrders(c *gin.Context) {
	var req OrderBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orderService.RemoveSelectedOrders(c.Request.Context(), req.OrderIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleExportOrdersToXML handles POST /order/export-orders-to-xml. On
// success the response is an application/xml attachment named by the
// current date.
func (h *OrderHandler) HandleExportOrdersToXML(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-export-orders-to-xml")
	defer h.tracer.EndTransaction(txn)

	var req OrderBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileName, content, err := h.exportService.Export(c.Request.Context(), req.OrderIDs)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	h.metrics.IncrementCounter("orders_exported")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	c.Data(http.StatusOK, "application/xml", content)
}

// HandleSearchOrders handles GET /order/search-orders
func (h *OrderHandler) HandleSearchOrders(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	docs, err := h.orderService.SearchOrders(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// HandleGetOrderStatuses handles GET /order/get-order-statuses
func (h *OrderHandler) HandleGetOrderStatuses(c *gin.Context) {
	statuses, err := h.orderService.ListStatuses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	order := router.Group("/order")
	order.POST("/create-order", h.HandleCreateOrder)
	order.GET("/get-orders", h.HandleGetOrders)
	order.GET("/get-order-details/:orderId", h.HandleGetOrderDetails)
	order.PUT("/update-order/:orderId", h.HandleUpdateOrder)
	order.DELETE("/delete-order/:id", h.HandleDeleteOrder)
	order.POST("/copy-orders", h.HandleCopyOrders)
	order.PUT("/change-order-status", h.HandleChangeOrderStatus)
	order.DELETE("/remove-selected-orders", h.HandleRemoveSelectedOrders)
	order.POST("/export-orders-to-xml", h.HandleExportOrdersToXML)
	order.GET("/search-orders", h.HandleSearchOrders)
	order.GET("/get-order-statuses", h.HandleGetOrderStatuses)
}
