package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forex-journal/internal/logging"
)

const (
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"

	contextKeyUserID    = "user_id"
	contextKeyRequestID = "request_id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLogMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := logger.With().Str("request_id", c.GetString(contextKeyRequestID)).Logger()
		if uid := c.GetString(contextKeyUserID); uid != "" {
			l = logging.WithUser(l, uid)
		}
		logging.LogRequest(l, c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// authMiddleware resolves the journal user. With a secret it requires an
// HS256 bearer token whose subject is the user ID; without one it trusts the
// X-User-ID header.
func authMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		if secret == "" {
			uid := strings.TrimSpace(c.GetHeader(headerUserID))
			if uid == "" {
				unauthorized(c, "missing "+headerUserID+" header")
				return
			}
			c.Set(contextKeyUserID, uid)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		uid, err := verifyToken(parts[1], key)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(contextKeyUserID, uid)
		c.Next()
	}
}

// verifyToken returns the subject of a valid HS256 token.
func verifyToken(tokenString string, key []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   true,
		"message": message,
	})
}
