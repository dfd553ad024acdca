package handler

import (
	"net/http"

	"jewelry-backend/internal/middleware"
	"jewelry-backend/internal/model"
	"jewelry-backend/internal/service"
	"jewelry-backend/pkg/pagination"
	"jewelry-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.CreateInvoice)
		invoices.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.ListInvoices)
		invoices.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.GetInvoice)
		invoices.POST("/:id/payment-plan", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.CreatePaymentPlan)
		invoices.GET("/:id/schedules", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.ListSchedules)
	}
}

// CreateInvoice creates a new invoice
// @Summary      Create invoice
// @Description  Creates an invoice; tax defaults to the active VAT rule for the issue date, and a payment plan is materialized when a payment term is given
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices, optionally filtered by payment status or customer
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Filter by payment status (UNPAID, PARTIALLY_PAID, FULLY_PAID, OVERDUE)"
// @Param        customer_id  query     string  false  "Filter by customer ID"
// @Param        invoice_no   query     string  false  "Filter by invoice number"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), service.InvoiceFilter{
		PaymentStatus: c.Query("status"),
		CustomerID:    c.Query("customer_id"),
		InvoiceNo:     c.Query("invoice_no"),
		Page:          params.Page,
		Limit:         params.Limit,
	}, currentCaller(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetInvoice returns one invoice with its payment schedule
// @Summary      Get invoice
// @Description  Retrieves an invoice by ID with its schedule rows; statuses reflect overdue rows as of now
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"), currentCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

type createPaymentPlanRequest struct {
	PaymentTermID string `json:"payment_term_id" binding:"required"`
}

// CreatePaymentPlan materializes a payment plan for an invoice
// @Summary      Create payment plan
// @Description  Attaches a payment term to the invoice and materializes its down payment and monthly schedule rows; rejected when a plan already exists
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Invoice ID"
// @Param        payload  body      createPaymentPlanRequest  true  "Payment Plan Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payment-plan [post]
func (h *InvoiceHandler) CreatePaymentPlan(c *gin.Context) {
	var req createPaymentPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreatePaymentPlan(c.Request.Context(), c.Param("id"), req.PaymentTermID, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListSchedules returns the payment schedule rows of an invoice
// @Summary      List invoice schedules
// @Description  Retrieves the payment schedule rows of an invoice ordered by payment order
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.ScheduleRowResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/schedules [get]
func (h *InvoiceHandler) ListSchedules(c *gin.Context) {
	rows, err := h.invoiceService.ListSchedules(c.Request.Context(), c.Param("id"), currentCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
