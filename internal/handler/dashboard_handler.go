package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/dashboard")
	{
		group.GET("/admin", middleware.RequireRole(middleware.RoleAdmin), h.Admin)
		group.GET("/accountant", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant), h.Accountant)
		group.GET("/commercial/me", middleware.RequireRole(middleware.RoleCommercial), h.CommercialMe)
		group.GET("/commercial/:id", middleware.RequireRole(middleware.RoleAdmin), h.Commercial)
		group.GET("/marketer", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleMarketer), h.Marketer)
	}
}

// Admin godoc
// @Summary      Admin dashboard
// @Description  Sales, wholesale and purchase summaries, balance, stock value and per-commercial stats. Sections that could not be loaded are listed in "sections".
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.AdminDashboard}
// @Failure      401  {object}  response.Response
// @Router       /api/dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	dash, sections, err := h.dashboardService.Admin(c.Request.Context(), middleware.Session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSections(c, dash, sections)
}

// Accountant godoc
// @Summary      Accountant dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        period  query     string  false  "monthly (default) or yearly"
// @Success      200     {object}  response.Response{data=service.AccountantDashboard}
// @Failure      400     {object}  response.Response
// @Router       /api/dashboard/accountant [get]
func (h *DashboardHandler) Accountant(c *gin.Context) {
	dash, sections, err := h.dashboardService.Accountant(c.Request.Context(), middleware.Session(c), c.Query("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSections(c, dash, sections)
}

// Commercial godoc
// @Summary      Commercial dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Commercial ID"
// @Success      200  {object}  response.Response{data=roles.CommercialStats}
// @Failure      404  {object}  response.Response
// @Router       /api/dashboard/commercial/{id} [get]
func (h *DashboardHandler) Commercial(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid commercial ID"))
		return
	}
	h.commercial(c, id)
}

// CommercialMe godoc
// @Summary      Dashboard of the logged-in commercial
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=roles.CommercialStats}
// @Router       /api/dashboard/commercial/me [get]
func (h *DashboardHandler) CommercialMe(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		respondError(c, fmt.Errorf("%w: token subject %q is not a commercial id", service.ErrInvalidInput, userID))
		return
	}
	h.commercial(c, id)
}

func (h *DashboardHandler) commercial(c *gin.Context, id int64) {
	stats, sections, err := h.dashboardService.Commercial(c.Request.Context(), middleware.Session(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSections(c, stats, sections)
}

// Marketer godoc
// @Summary      Marketer dashboard
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MarketerDashboard}
// @Router       /api/dashboard/marketer [get]
func (h *DashboardHandler) Marketer(c *gin.Context) {
	dash, sections, err := h.dashboardService.Marketer(c.Request.Context(), middleware.Session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSections(c, dash, sections)
}
