package middleware

import (
	"VoiceHub/limiter"
	"VoiceHub/models"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// GiftRateLimitMiddleware 按用户限制送礼频率，挡住刷礼物脚本。
// 限流器不可用时放行——限流是保护措施，不是业务规则
func GiftRateLimitMiddleware(manager *limiter.Manager, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil || limit <= 0 {
				return next(c)
			}
			user, ok := c.Get("user").(*models.User)
			if !ok {
				return next(c)
			}
			key := fmt.Sprintf("ratelimit:gift:%d", user.ID)
			allowed, err := manager.Allow(c.Request().Context(), key, limit, window)
			if err != nil {
				return next(c)
			}
			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "too many gifts, slow down",
				})
			}
			return next(c)
		}
	}
}
