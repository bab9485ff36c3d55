package handler

import (
	"net/http"
	"slices"
	"strings"

	"productcatalog/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Роли, которым разрешено изменять каталог
const (
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Ключи gin.Context с данными пользователя
const (
	ctxUserID   = "user_id"
	ctxRoleName = "role_name"
)

type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет JWT токены, выпущенные сервисом авторизации
type AuthMiddleware struct {
	jwtSecret []byte
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: []byte(jwtSecret),
	}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortAuth(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return m.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			abortAuth(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRoleName, claims.RoleName)

		c.Next()
	}
}

func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleName := c.GetString(ctxRoleName)
		if roleName == "" {
			abortAuth(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !slices.Contains(roles, roleName) {
			logger.Warn().
				Str("user_id", c.GetString(ctxUserID)).
				Str("role", roleName).
				Str("path", c.Request.URL.Path).
				Msg("Insufficient role for catalog mutation")
			abortAuth(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
