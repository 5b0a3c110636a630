package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hailaprogramare/contest-backend/internal/auth"
	"github.com/hailaprogramare/contest-backend/internal/service"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

const claimsContextKey = "claims"

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

// RequestTimeout bounds every handler with a deadline so a stalled backend
// cannot hold a request open indefinitely.
func RequestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// AuthMiddleware verifies the bearer token and requires one of the given
// token types.
func AuthMiddleware(types ...auth.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				return authError(c, http.StatusUnauthorized, service.ErrorCodeUnauthorized, "missing bearer token")
			}

			claims, err := auth.VerifyToken(token)
			if err != nil {
				return authError(c, http.StatusUnauthorized, service.ErrorCodeUnauthorized, "invalid or expired token")
			}

			allowed := false
			for _, t := range types {
				if claims.Type == t {
					allowed = true
					break
				}
			}
			if !allowed {
				return authError(c, http.StatusForbidden, service.ErrorCodeForbidden, "insufficient permissions")
			}

			c.Set(claimsContextKey, claims)

			return next(c)
		}
	}
}

func authError(c echo.Context, status int, code service.ErrorCode, message string) error {
	return c.JSON(status, struct {
		Error *service.Error `json:"error"`
	}{Error: service.NewError(code, message)})
}

func claimsFromContext(c echo.Context) *auth.TokenClaims {
	if claims, ok := c.Get(claimsContextKey).(*auth.TokenClaims); ok {
		return claims
	}
	return nil
}
