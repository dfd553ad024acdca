package handler

import (
	"net/http"
	"strconv"

	"jewelry-backend/internal/middleware"
	"jewelry-backend/internal/model"
	"jewelry-backend/internal/service"
	"jewelry-backend/pkg/pagination"
	"jewelry-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentTermHandler struct {
	termService service.PaymentTermService
}

func NewPaymentTermHandler(termService service.PaymentTermService) *PaymentTermHandler {
	return &PaymentTermHandler{termService: termService}
}

func (h *PaymentTermHandler) RegisterRoutes(router *gin.RouterGroup) {
	terms := router.Group("/api/payment-terms")
	{
		terms.POST("", middleware.RequireRole(model.RoleAdmin), h.CreatePaymentTerm)
		terms.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.ListPaymentTerms)
		terms.GET("/preview", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.PreviewEqualSplit)
		terms.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetPaymentTerm)
		terms.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdatePaymentTerm)
		terms.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeletePaymentTerm)
	}
}

// CreatePaymentTerm creates a new payment term template
// @Summary      Create payment term
// @Description  Creates a payment term template with a down payment and monthly schedule; schedule omitted = equal split
// @Tags         payment-terms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePaymentTermRequest  true  "Create Payment Term Payload"
// @Success      201      {object}  response.Response{data=service.PaymentTermResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payment-terms [post]
func (h *PaymentTermHandler) CreatePaymentTerm(c *gin.Context) {
	var req service.CreatePaymentTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	term, err := h.termService.CreatePaymentTerm(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, term))
}

// ListPaymentTerms returns a paginated list of payment terms
// @Summary      List payment terms
// @Description  Retrieves a paginated list of payment term templates
// @Tags         payment-terms
// @Security     BearerAuth
// @Produce      json
// @Param        active  query     bool    false  "Only return active terms"
// @Param        code    query     string  false  "Filter by term code"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/payment-terms [get]
func (h *PaymentTermHandler) ListPaymentTerms(c *gin.Context) {
	params := pagination.Parse(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	terms, total, err := h.termService.ListPaymentTerms(c.Request.Context(), service.PaymentTermFilter{
		ActiveOnly: activeOnly,
		Code:       c.Query("code"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"payment_terms": terms,
		"total":         total,
		"page":          params.Page,
		"limit":         params.Limit,
	}))
}

// GetPaymentTerm returns a single payment term with its schedule
// @Summary      Get payment term
// @Description  Retrieves one payment term template by ID including its schedule entries
// @Tags         payment-terms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment Term ID"
// @Success      200  {object}  response.Response{data=service.PaymentTermResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/payment-terms/{id} [get]
func (h *PaymentTermHandler) GetPaymentTerm(c *gin.Context) {
	term, err := h.termService.GetPaymentTerm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, term))
}

// UpdatePaymentTerm updates a payment term template
// @Summary      Update payment term
// @Description  Updates a payment term template; replaces the schedule when one is provided
// @Tags         payment-terms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Payment Term ID"
// @Param        payload  body      service.UpdatePaymentTermRequest  true  "Update Payment Term Payload"
// @Success      200      {object}  response.Response{data=service.PaymentTermResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payment-terms/{id} [put]
func (h *PaymentTermHandler) UpdatePaymentTerm(c *gin.Context) {
	var req service.UpdatePaymentTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	term, err := h.termService.UpdatePaymentTerm(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, term))
}

// DeletePaymentTerm deletes a payment term template
// @Summary      Delete payment term
// @Description  Soft-deletes a payment term; rejected when invoices reference it
// @Tags         payment-terms
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment Term ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payment-terms/{id} [delete]
func (h *PaymentTermHandler) DeletePaymentTerm(c *gin.Context) {
	if err := h.termService.DeletePaymentTerm(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// PreviewEqualSplit previews the auto-generated equal monthly split
// @Summary      Preview equal split
// @Description  Returns the equal monthly percentages that would be generated for the given remaining percentage and term length
// @Tags         payment-terms
// @Security     BearerAuth
// @Produce      json
// @Param        remaining_percentage  query     string  true  "Remaining percentage after down payment, e.g. 70"
// @Param        term_months           query     int     true  "Number of monthly installments"
// @Success      200                   {object}  response.Response{data=[]service.ScheduleEntryResponse}
// @Failure      400                   {object}  response.Response
// @Router       /api/payment-terms/preview [get]
func (h *PaymentTermHandler) PreviewEqualSplit(c *gin.Context) {
	termMonths, err := strconv.Atoi(c.DefaultQuery("term_months", "0"))
	if err != nil || termMonths <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "term_months must be a positive integer"))
		return
	}

	entries, err := h.termService.PreviewEqualSplit(c.Request.Context(), c.Query("remaining_percentage"), termMonths)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
