package handler

import (
	"net/http"

	"jewelry-backend/internal/middleware"
	"jewelry-backend/internal/model"
	"jewelry-backend/internal/service"
	"jewelry-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxRuleService
}

func NewTaxHandler(taxService service.TaxRuleService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/tax-rules")
	{
		rules.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetTaxRules)
		rules.GET("/active", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetActiveRate)
		rules.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateTaxRule)
		rules.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateTaxRule)
		rules.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteTaxRule)
	}
}

// GetTaxRules lists all tax, fee, and discount rules
// @Summary      List tax rules
// @Description  Retrieves all tax, luxury fee, and discount rules ordered by effective date
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TaxRuleResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/tax-rules [get]
func (h *TaxHandler) GetTaxRules(c *gin.Context) {
	rules, err := h.taxService.GetTaxRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// GetActiveRate returns the currently active rate for a rule kind
// @Summary      Get active rate
// @Description  Returns the rate currently in effect for the given kind (VAT, LUXURY_FEE, DISCOUNT); data is null when none applies
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        kind  query     string  true  "Rule kind (VAT, LUXURY_FEE, DISCOUNT)"
// @Success      200   {object}  response.Response{data=service.ActiveRateResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/tax-rules/active [get]
func (h *TaxHandler) GetActiveRate(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "kind query parameter is required"))
		return
	}

	rate, err := h.taxService.GetActiveRate(c.Request.Context(), kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRule creates a new tax rule
// @Summary      Create tax rule
// @Description  Creates a tax, fee, or discount rule with temporal validity; overlapping rules of the same kind are rejected
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaxRuleRequest  true  "Create Tax Rule Payload"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule updates an existing tax rule
// @Summary      Update tax rule
// @Description  Updates a tax, fee, or discount rule by ID
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Tax Rule ID"
// @Param        payload  body      service.UpdateTaxRuleRequest  true  "Update Tax Rule Payload"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.UpdateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.UpdateTaxRule(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule deletes a tax rule
// @Summary      Delete tax rule
// @Description  Deletes a tax, fee, or discount rule by ID
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxService.DeleteTaxRule(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
