package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/chain-slots-engine/types"
)

// Context keys for authenticated operator information
const (
	OperatorIDKey = "operator_id"
	ClaimsKey     = "claims"
)

// Claims represents the JWT claims structure
type Claims struct {
	OperatorID string `json:"operator_id"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTMiddleware creates a JWT authentication middleware for operator routes
func JWTMiddleware(secret string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn().Msg("Missing Authorization header")
			unauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn().Str("auth_header", authHeader).Msg("Invalid Authorization header format")
			unauthorized(c, "Invalid Authorization header format. Expected: Bearer <token>")
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to parse JWT token")
			unauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			logger.Warn().Msg("Invalid token claims")
			unauthorized(c, "Invalid token claims")
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(ClaimsKey, claims)

		logger.Debug().
			Str("operator_id", claims.OperatorID).
			Msg("JWT authentication successful")

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	errorResp := types.ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		IsSuccess:  false,
		Error: types.ErrorDetail{
			Timestamp:    time.Now().Format(time.RFC3339),
			Path:         c.Request.URL.Path,
			ErrorMessage: message,
			ErrorCode:    "UNAUTHORIZED",
		},
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp)
}

// GetOperatorID extracts the operator ID from context
func GetOperatorID(c *gin.Context) (string, bool) {
	operatorID, exists := c.Get(OperatorIDKey)
	if !exists {
		return "", false
	}
	id, ok := operatorID.(string)
	return id, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claimsObj, ok := claims.(*Claims)
	return claimsObj, ok
}

// GenerateToken generates a new JWT token for an operator
func GenerateToken(secret, operatorID, role string, expiration time.Duration) (string, error) {
	claims := &Claims{
		OperatorID: operatorID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
