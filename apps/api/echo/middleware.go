package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/user"
)

// roleMiddleware restricts a handler group to the given roles.
// Admins pass regardless.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == user.RoleAdmin {
				return next(ctx)
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func learnerMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleLearner)
}

func instructorMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleInstructor)
}
