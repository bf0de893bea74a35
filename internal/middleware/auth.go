package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmatrust/drugtrace/internal/config"
	"github.com/pharmatrust/drugtrace/internal/models"
)

// Claims represents JWT claims issued at login.
type Claims struct {
	WalletAddress string      `json:"walletAddress"`
	Role          models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a JWT for an authenticated user.
func IssueToken(cfg *config.Config, user *models.User) (string, error) {
	claims := &Claims{
		WalletAddress: user.WalletAddress,
		Role:          user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.WalletAddress,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.JWTExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// Auth validates the bearer token and stores the caller's identity in the
// request context.
func Auth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("walletAddress", claims.WalletAddress)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry the given role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("role")
		if !exists || value.(models.Role) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// GetWalletAddress extracts the authenticated wallet address from the
// request context.
func GetWalletAddress(c *gin.Context) string {
	value, exists := c.Get("walletAddress")
	if !exists {
		return ""
	}
	return value.(string)
}
