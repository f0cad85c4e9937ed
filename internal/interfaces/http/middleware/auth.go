package middleware

import (
	"errors"
	"strings"

	"github.com/backoffice/backend/internal/domain/orderlist"
	"github.com/backoffice/backend/internal/infrastructure/auth"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware
const (
	ClaimsKey     = "auth_claims"
	ActorKey      = "auth_actor"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// Authenticate validates the bearer token and stores the caller as an
// orderlist.Actor in the gin context and in the request logger fields.
func Authenticate(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		token, found := strings.CutPrefix(header, BearerPrefix)
		if header == "" || !found || token == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken)
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			abortUnauthorized(c, log, err)
			return
		}
		actor, err := claims.Actor()
		if err != nil {
			abortUnauthorized(c, log, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(ActorKey, actor)
		ctx := logger.WithActor(c.Request.Context(), actor.ActorID().String(), string(actor.ActorRole()))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireStaff rejects callers that are not staff
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeUnauthorized),
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", requestID(c)))
			return
		}
		if !orderlist.IsStaff(actor) {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeForbidden),
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Staff access required", requestID(c)))
			return
		}
		c.Next()
	}
}

// GetActor returns the authenticated caller
func GetActor(c *gin.Context) (orderlist.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil, false
	}
	actor, ok := v.(orderlist.Actor)
	return actor, ok
}

// GetClaims returns the validated token claims
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error) {
	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrInvalidClaims):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	logger.L(c.Request.Context(), log).Warn("Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

func requestID(c *gin.Context) string {
	return logger.GetRequestID(c.Request.Context())
}
