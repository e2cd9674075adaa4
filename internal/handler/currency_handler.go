package handler

import (
	"net/http"
	"strconv"

	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/pkg/pagination"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

// historyPageSize is the default page size of rate history.
const historyPageSize = 10

type CurrencyHandler struct {
	currencyService service.CurrencyService
}

func NewCurrencyHandler(currencyService service.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService}
}

func (h *CurrencyHandler) RegisterRoutes(router *gin.RouterGroup) {
	currencies := router.Group("/api/currencies")
	{
		currencies.GET("", middleware.RequireRole(allRoles...), h.List)
		currencies.PUT("/:id", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant), h.Update)
		currencies.GET("/:id/history", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant), h.History)
	}
}

// List godoc
// @Summary      List currencies
// @Tags         currencies
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Currency}
// @Router       /api/currencies [get]
func (h *CurrencyHandler) List(c *gin.Context) {
	currencies, err := h.currencyService.List(c.Request.Context(), middleware.Session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, currencies))
}

// Update godoc
// @Summary      Update an exchange rate
// @Description  Edits the DZD rate upstream, then records a rate snapshot and an audit entry
// @Tags         currencies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                            true  "Currency ID"
// @Param        payload  body      service.UpdateCurrencyRequest  true  "New rate"
// @Success      200      {object}  response.Response{data=model.Currency}
// @Failure      400      {object}  response.Response
// @Router       /api/currencies/{id} [put]
func (h *CurrencyHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid currency ID"))
		return
	}

	var req service.UpdateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	currency, err := h.currencyService.Update(c.Request.Context(), middleware.Session(c), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, currency))
}

// History godoc
// @Summary      Exchange rate history
// @Tags         currencies
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      int  true   "Currency ID"
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=[]model.RateSnapshot}
// @Router       /api/currencies/{id}/history [get]
func (h *CurrencyHandler) History(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid currency ID"))
		return
	}
	p := pagination.ParseWithLimit(c, historyPageSize)

	rows, total, err := h.currencyService.History(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rows, p.Page, p.Limit, total))
}
