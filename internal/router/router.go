// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/handler"
	"github.com/iliyamo/cinema-recommender/internal/middleware"
	"github.com/iliyamo/cinema-recommender/internal/utils"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Health          *handler.HealthHandler
	Auth            *handler.AuthHandler
	Movies          *handler.MovieHandler
	Users           *handler.UserHandler
	Reservations    *handler.ReservationHandler
	Recommendations *handler.RecommendationHandler
	Admin           *handler.AdminHandler
}

// Deps are the middleware inputs shared by the route groups.
type Deps struct {
	JWTSecret string
	Schema    middleware.InitChecker
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register mounts all routes on e.
//
//	public:    /healthz, /v1/auth/login
//	reads:     require an initialized schema, responses cached
//	mutations: operator token plus initialized schema
//	admin:     operator token only
func Register(e *echo.Echo, h Handlers, d Deps) {
	if d.Cache == nil {
		d.Cache = passthrough
	}
	if d.RateLimit == nil {
		d.RateLimit = passthrough
	}

	e.GET("/healthz", h.Health.Health)

	v1 := e.Group("/v1", d.RateLimit)
	v1.POST("/auth/login", h.Auth.Login)

	ready := middleware.RequireInitialized(d.Schema)
	operator := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(utils.RoleOperator)}

	reads := v1.Group("", ready, d.Cache)
	reads.GET("/movies", h.Movies.List)
	reads.GET("/movies/:id/users", h.Movies.Viewers)
	reads.GET("/users", h.Users.List)
	reads.GET("/users/:id/movies", h.Users.Movies)
	reads.GET("/users/:id/recommendations/popularity", h.Recommendations.Popularity)
	reads.GET("/users/:id/recommendations/collaborative", h.Recommendations.Collaborative)

	writes := v1.Group("", append(operator, ready)...)
	writes.POST("/movies", h.Movies.Create)
	writes.DELETE("/movies/:id", h.Movies.Delete)
	writes.POST("/users", h.Users.Create)
	writes.DELETE("/users/:id", h.Users.Delete)
	writes.POST("/reservations", h.Reservations.Book)
	writes.POST("/ratings", h.Reservations.Rate)

	admin := v1.Group("/admin", operator...)
	admin.POST("/init", h.Admin.Initialize)
	admin.POST("/reset", h.Admin.Reset)
}
