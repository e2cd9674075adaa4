package handler

import (
	"fmt"
	"io"
	"net/http"
	"slices"

	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/internal/upstream"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeRoles lists who may mutate each resource besides admins.
var writeRoles = map[string][]string{
	"cars":              nil,
	"commercials":       nil,
	"marketers":         nil,
	"accountants":       nil,
	"clients":           {middleware.RoleCommercial},
	"orders":            {middleware.RoleCommercial},
	"wholesale_clients": {middleware.RoleCommercial},
	"wholesale_orders":  {middleware.RoleCommercial},
	"suppliers":         {middleware.RoleAccountant},
	"suppliers_items":   {middleware.RoleAccountant},
	"currencies":        {middleware.RoleAccountant},
	"social_links":      {middleware.RoleMarketer},
}

// maxUploadSize caps image uploads.
const maxUploadSize = 10 << 20

type ResourceHandler struct {
	proxyService service.ProxyService
}

func NewResourceHandler(proxyService service.ProxyService) *ResourceHandler {
	return &ResourceHandler{proxyService: proxyService}
}

func (h *ResourceHandler) RegisterRoutes(router *gin.RouterGroup) {
	resources := router.Group("/api/resources")
	resources.Use(middleware.RequireRole(allRoles...))
	{
		resources.GET("/:resource", h.List)
		resources.GET("/:resource/:id", h.Get)
		resources.POST("/:resource", h.canWrite, h.Create)
		resources.PUT("/:resource/:id", h.canWrite, h.Update)
		resources.DELETE("/:resource/:id", h.canWrite, h.Delete)
		resources.POST("/:resource/:id/images", h.canWrite, h.UploadImage)
	}
}

func (h *ResourceHandler) canWrite(c *gin.Context) {
	resource := c.Param("resource")
	roles, ok := writeRoles[resource]
	if !ok {
		respondError(c, fmt.Errorf("%w: %q", upstream.ErrUnknownResource, resource))
		c.Abort()
		return
	}
	_, role := middleware.CurrentUser(c)
	if role != middleware.RoleAdmin && !slices.Contains(roles, role) {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
		return
	}
	c.Next()
}

// List godoc
// @Summary      List a resource
// @Description  Read-only passthrough to the dealership API
// @Tags         resources
// @Security     BearerAuth
// @Produce      json
// @Param        resource  path      string  true  "cars, clients, orders, commercials, marketers, accountants, suppliers, suppliers_items, currencies, wholesale_clients, wholesale_orders, social_links"
// @Success      200       {object}  response.Response{data=object}
// @Failure      404       {object}  response.Response
// @Router       /api/resources/{resource} [get]
func (h *ResourceHandler) List(c *gin.Context) {
	raw, err := h.proxyService.List(c.Request.Context(), middleware.Session(c), c.Param("resource"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, raw))
}

// Get godoc
// @Summary      Get one record
// @Tags         resources
// @Security     BearerAuth
// @Produce      json
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Record ID"
// @Success      200       {object}  response.Response{data=object}
// @Failure      404       {object}  response.Response
// @Router       /api/resources/{resource}/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	raw, err := h.proxyService.Get(c.Request.Context(), middleware.Session(c), c.Param("resource"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, raw))
}

// Create godoc
// @Summary      Create a record
// @Tags         resources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        resource  path      string  true  "Resource name"
// @Param        payload   body      object  true  "Record, as the dealership API expects it"
// @Success      201       {object}  response.Response{data=object}
// @Failure      400       {object}  response.Response
// @Router       /api/resources/{resource} [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	h.mutate(c, http.MethodPost, http.StatusCreated)
}

// Update godoc
// @Summary      Update a record
// @Tags         resources
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Record ID"
// @Param        payload   body      object  true  "Fields to update"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/resources/{resource}/{id} [put]
func (h *ResourceHandler) Update(c *gin.Context) {
	h.mutate(c, http.MethodPut, http.StatusOK)
}

// Delete godoc
// @Summary      Delete a record
// @Tags         resources
// @Security     BearerAuth
// @Produce      json
// @Param        resource  path      string  true  "Resource name"
// @Param        id        path      string  true  "Record ID"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/resources/{resource}/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	h.mutate(c, http.MethodDelete, http.StatusOK)
}

func (h *ResourceHandler) mutate(c *gin.Context, method string, status int) {
	req := service.MutateRequest{
		Resource: c.Param("resource"),
		Method:   method,
		ID:       c.Param("id"),
	}
	if method != http.MethodDelete {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
		req.Body = body
	}

	raw, err := h.proxyService.Mutate(c.Request.Context(), middleware.Session(c), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, response.Success(status, raw))
}

// UploadImage godoc
// @Summary      Upload an image
// @Description  Attaches an image to a car or a social link
// @Tags         resources
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        resource  path      string  true  "cars or social_links"
// @Param        id        path      string  true  "Record ID"
// @Param        file      formData  file    true  "Image file"
// @Success      200       {object}  response.Response{data=object}
// @Failure      400       {object}  response.Response
// @Router       /api/resources/{resource}/{id}/images [post]
func (h *ResourceHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing image file: "+err.Error()))
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Unreadable image file: "+err.Error()))
		return
	}
	defer f.Close()

	raw, err := h.proxyService.Upload(c.Request.Context(), middleware.Session(c), actorFrom(c), c.Param("resource"), c.Param("id"), file.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, raw))
}
