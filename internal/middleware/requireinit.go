package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/repository"
)

// InitChecker reports whether the schema exists.
type InitChecker interface {
	Initialized(ctx context.Context) (bool, error)
}

// RequireInitialized answers 503 until the database has been initialized.
func RequireInitialized(checker InitChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := checker.Initialized(c.Request().Context())
			if err != nil {
				logging.Error().Err(err).Msg("initialization check failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if !ok {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": repository.ErrNotInitialized.Error()})
			}
			return next(c)
		}
	}
}
