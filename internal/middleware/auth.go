package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"dealership/internal/logger"
	"dealership/internal/upstream"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the dealership API.
const (
	RoleAdmin      = "admin"
	RoleCommercial = "commercial"
	RoleAccountant = "accountant"
	RoleMarketer   = "marketer"
)

// Context keys set by RequireRole.
const (
	ContextUserID  = "userID"
	ContextRole    = "userRole"
	ContextToken   = "accessToken"
	contextExpired = "sessionExpired"
)

const accessTokenCookie = "access_token"

var (
	ErrMissingToken = errors.New("authorization is missing")
	ErrTokenExpired = errors.New("token expired")
	ErrNoSigningKey = errors.New("token signing key is not configured")
)

var jwtSecret atomic.Pointer[[]byte]

// SetJWTSecret sets the HMAC key the dealership API signs its tokens with.
// Until it is set every token is rejected.
func SetJWTSecret(secret []byte) {
	key := slices.Clone(secret)
	jwtSecret.Store(&key)
}

func signingKey(_ *jwt.Token) (interface{}, error) {
	key := jwtSecret.Load()
	if key == nil || len(*key) == 0 {
		return nil, ErrNoSigningKey
	}
	return *key, nil
}

var loginRoutes = map[string]string{
	RoleAdmin:      "/admin/login",
	RoleCommercial: "/commercial/login",
	RoleAccountant: "/accountant/login",
	RoleMarketer:   "/marketer/login",
}

// LoginRoute is the front-end route a user of role is sent to after a 401.
func LoginRoute(role string) string {
	if r, ok := loginRoutes[strings.ToLower(role)]; ok {
		return r
	}
	return "/login"
}

// Claims is what the gateway reads from the upstream token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// ParseToken verifies the upstream JWT against the shared secret and reads its claims.
// Expiry is checked against now; an expired token still returns its claims so the caller can
// pick the right login route.
func ParseToken(raw string, now time.Time) (Claims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, signingKey); err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	var out Claims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		// some tokens carry a numeric user id instead of sub
		if id, ok := claims["user_id"]; ok {
			out.Subject = fmt.Sprint(id)
		}
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = strings.ToLower(role)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return out, ErrTokenExpired
		}
	}
	return out, nil
}

// TokenFromRequest reads the bearer header, falling back to the access_token cookie.
func TokenFromRequest(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errors.New("invalid authorization format, expected 'Bearer <token>'")
		}
		return parts[1], nil
	}
	if tokenString, err := c.Cookie(accessTokenCookie); err == nil && tokenString != "" {
		return tokenString, nil
	}
	return "", ErrMissingToken
}

// RequireRole checks the caller's token and role. An empty allowedRoles accepts any role.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect := "/login"
		if len(allowedRoles) == 1 {
			redirect = LoginRoute(allowedRoles[0])
		}

		tokenString, err := TokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(err.Error(), redirect))
			return
		}

		claims, err := ParseToken(tokenString, time.Now())
		if claims.Role != "" {
			redirect = LoginRoute(claims.Role)
		}
		if err != nil {
			ClearTokenCookies(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(err.Error(), redirect))
			return
		}

		if len(allowedRoles) > 0 {
			if claims.Role == "" {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
				return
			}
			if !slices.Contains(allowedRoles, claims.Role) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, tokenString)

		c.Next()
	}
}

// Session builds the upstream session for this request. A 401 from the API marks the request so
// the response can send the caller back to the login page.
func Session(c *gin.Context) upstream.Session {
	return upstream.Session{
		Token: c.GetString(ContextToken),
		OnUnauthorized: func(_ context.Context) {
			c.Set(contextExpired, true)
			logger.Log.Info().
				Str("user_id", c.GetString(ContextUserID)).
				Str("role", c.GetString(ContextRole)).
				Msg("upstream rejected session")
		},
	}
}

// SessionExpired reports whether the API rejected this request's token.
func SessionExpired(c *gin.Context) bool {
	return c.GetBool(contextExpired)
}

// CurrentUser returns the subject and role set by RequireRole.
func CurrentUser(c *gin.Context) (userID, role string) {
	return c.GetString(ContextUserID), c.GetString(ContextRole)
}

func cookieMode() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if gin.Mode() == gin.ReleaseMode {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookies stores the upstream access token as an HttpOnly cookie.
func SetTokenCookies(c *gin.Context, accessToken string, maxAge time.Duration) {
	sameSite, secure := cookieMode()
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, accessToken, int(maxAge.Seconds()), "/", "", secure, true)
}

// ClearTokenCookies removes the access_token cookie
func ClearTokenCookies(c *gin.Context) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
}
