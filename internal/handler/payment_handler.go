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

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	{
		payments.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.SubmitPayment)
		payments.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.ListPayments)
		payments.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.GetPayment)
		payments.PUT("/:id/approve", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.ApprovePayment)
		payments.PUT("/:id/reject", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.RejectPayment)
		payments.PUT("/:id/confirm", middleware.RequireRole(model.RoleAdmin), h.ConfirmPayment)
		payments.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeletePayment)
	}
}

// SubmitPayment records a new pending payment
// @Summary      Submit payment
// @Description  Records a payment against an invoice in PENDING state; schedule rows may be targeted via selected_schedules
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitPaymentRequest  true  "Submit Payment Payload"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payments [post]
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	var req service.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	payment, err := h.paymentService.SubmitPayment(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments returns a paginated list of payments
// @Summary      List payments
// @Description  Retrieves a paginated list of payments, optionally filtered by status, invoice, or customer
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Filter by status (PENDING, APPROVED, REJECTED, CONFIRMED)"
// @Param        invoice_id   query     string  false  "Filter by invoice ID"
// @Param        customer_id  query     string  false  "Filter by customer ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	params := pagination.Parse(c)

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), service.PaymentFilter{
		Status:     c.Query("status"),
		InvoiceID:  c.Query("invoice_id"),
		CustomerID: c.Query("customer_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"payments": payments,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetPayment returns one payment with its allocations
// @Summary      Get payment
// @Description  Retrieves a payment by ID including how it was allocated across schedule rows
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"), currentCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// ApprovePayment approves a pending payment and credits the schedule
// @Summary      Approve payment
// @Description  Approves a pending payment, allocates it across schedule rows in payment order, and recomputes the invoice aggregate
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payments/{id}/approve [put]
func (h *PaymentHandler) ApprovePayment(c *gin.Context) {
	payment, err := h.paymentService.ApprovePayment(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// RejectPayment rejects a pending payment
// @Summary      Reject payment
// @Description  Rejects a pending payment with a reason; nothing is credited
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Payment ID"
// @Param        payload  body      service.RejectPaymentRequest  true  "Reject Payment Payload"
// @Success      200      {object}  response.Response{data=service.PaymentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/payments/{id}/reject [put]
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	var req service.RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	payment, err := h.paymentService.RejectPayment(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// ConfirmPayment finalizes an approved payment
// @Summary      Confirm payment
// @Description  Marks an approved payment as confirmed (funds settled); confirmed payments are immutable
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/payments/{id}/confirm [put]
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	payment, err := h.paymentService.ConfirmPayment(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// DeletePayment deletes a pending or rejected payment
// @Summary      Delete payment
// @Description  Soft-deletes a payment that has not been credited (PENDING or REJECTED only)
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	if err := h.paymentService.DeletePayment(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
