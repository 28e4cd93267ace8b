package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ctxStudentOrAdminMiddleware lets students reach their own records only.
func ctxStudentOrAdminMiddleware(studentID func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			id := core.CleanString(studentID(ctx))
			if claims.IsStudent && id != "" && id == claims.StudentID {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func studentIDFromQuery(ctx echo.Context) string {
	return ctx.QueryParam(studentIDParam)
}

func studentIDFromPath(ctx echo.Context) string {
	return ctx.Param("id")
}
