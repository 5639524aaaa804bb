package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/middleware"
)

// AdminHandler creates and resets the database.
type AdminHandler struct {
	Init  Initializer
	Cache Purger
}

// NewAdminHandler panics on a nil initializer.
func NewAdminHandler(in Initializer, cache Purger) *AdminHandler {
	if in == nil {
		panic("nil initializer passed to NewAdminHandler")
	}
	return &AdminHandler{Init: in, Cache: cache}
}

type resetReq struct {
	Confirm bool `json:"confirm" validate:"eq=true"`
}

// Initialize handles POST /v1/admin/init.  It creates the schema and loads
// the configured CSV; rows that break a rule are skipped and listed.
// Bulk loads are not bounded by the request timeout.
func (h *AdminHandler) Initialize(c echo.Context) error {
	ctx := c.Request().Context()
	report, err := h.Init.Initialize(ctx)
	if err != nil {
		return fail(c, err, nil)
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Database successfully initialized", "report": report})
}

// Reset handles POST /v1/admin/reset.  It requires {"confirm": true},
// drops every table and initializes again.
func (h *AdminHandler) Reset(c echo.Context) error {
	var req resetReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	report, err := h.Init.Reset(ctx)
	if err != nil {
		return fail(c, err, nil)
	}
	purge(ctx, h.Cache)
	subject, _ := c.Get(middleware.CtxSubject).(string)
	logging.Info().Str("subject", subject).Msg("database reset")
	return c.JSON(http.StatusOK, echo.Map{"message": "Database successfully initialized", "report": report})
}
