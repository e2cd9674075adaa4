package handler

import (
	"net/http"
	"strconv"

	"dealership/internal/middleware"
	"dealership/internal/model"
	"dealership/internal/service"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	proxyService service.ProxyService
}

func NewExpenseHandler(proxyService service.ProxyService) *ExpenseHandler {
	return &ExpenseHandler{proxyService: proxyService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.PUT("/:period/:id", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant), h.UpdateExpense)
	}
}

// UpdateExpense edits a monthly or yearly expense rollup; the total is recomputed from its parts
// @Summary      Update expense rollup
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        period   path      string               true  "monthly or yearly"
// @Param        id       path      int                  true  "Rollup ID"
// @Param        payload  body      model.ExpenseRollup  true  "Purchases, transport and other"
// @Success      200      {object}  response.Response{data=model.ExpenseRollup}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses/{period}/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid expense ID"))
		return
	}

	var req model.ExpenseRollup
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rollup, err := h.proxyService.UpdateExpense(c.Request.Context(), middleware.Session(c), actorFrom(c), c.Param("period"), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rollup))
}
