package handler

import (
	"errors"
	"net/http"
	"time"

	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/internal/upstream"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
	}
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates against the dealership API and stores the access token as an HttpOnly cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body service.LoginRequest true "Credentials"
// @Success      200  {object}  response.Response{data=service.LoginResult}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid phone number or password"))
			return
		}
		respondError(c, err)
		return
	}

	var maxAge time.Duration
	if res.ExpiresAt != nil {
		maxAge = time.Until(*res.ExpiresAt)
	}
	middleware.SetTokenCookies(c, res.AccessToken, maxAge)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout godoc
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}
