package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// 管理APIのガード。AuthJWTが積んだroleで判定する。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxUserRoleKey).(string)

			switch role {
			case "ADMIN":
				return next(c)
			case "":
				//roleが無い＝AuthJWTを通っていない
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			default:
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
		}
	}
}
