package middleware

import (
	"errors"
	"net/http"
	"strings"

	"quoteportal/internal/model"
	"quoteportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

var (
	ErrMissingClaim = errors.New("required claim missing")
	ErrUnknownRole  = errors.New("unknown role")
)

// ParseToken validates an HMAC-signed token and maps its claims to a principal.
func ParseToken(secret []byte, tokenString string) (model.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return model.Principal{}, err
	}
	if !token.Valid {
		return model.Principal{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, jwt.ErrTokenInvalidClaims
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return model.Principal{}, ErrMissingClaim
	}
	role := model.Role(stringClaim(claims, "role"))
	if !role.Valid() {
		return model.Principal{}, ErrUnknownRole
	}

	p := model.Principal{
		ID:         sub,
		Email:      stringClaim(claims, "email"),
		Role:       role,
		Name:       stringClaim(claims, "name"),
		Department: stringClaim(claims, "department"),
	}
	if perms, ok := claims["permissions"].([]interface{}); ok {
		for _, perm := range perms {
			if code, ok := perm.(string); ok {
				p.Permissions = append(p.Permissions, code)
			}
		}
	}
	return p, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

// tokenFromRequest reads the access_token cookie, falling back to the
// Authorization header.
func tokenFromRequest(c *gin.Context) (string, string) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// Authenticate validates the JWT and stores the caller's principal on the context.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		principal, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		c.Set(principalKey, principal)
		c.Set("userID", principal.ID)
		c.Set("userRole", string(principal.Role))

		c.Next()
	}
}

// RequireRole rejects callers whose role is not in allowedRoles. It must run
// after Authenticate.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		for _, role := range allowedRoles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission rejects callers missing any of requiredPerms.
// Administrative roles always pass.
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
			return
		}
		for _, required := range requiredPerms {
			if !principal.HasPermission(required) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}
