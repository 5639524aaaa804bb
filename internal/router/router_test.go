package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/config"
	"github.com/iliyamo/cinema-recommender/internal/handler"
	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
	"github.com/iliyamo/cinema-recommender/internal/seed"
	"github.com/iliyamo/cinema-recommender/internal/utils"
)

type stubStore struct{}

func (stubStore) Create(context.Context, *model.Movie) error                { return nil }
func (stubStore) Delete(context.Context, uint64) error                      { return nil }
func (stubStore) GetByID(context.Context, uint64) (*model.Movie, error)     { return &model.Movie{}, nil }
func (stubStore) ListWithStats(context.Context) ([]model.MovieStats, error) { return []model.MovieStats{}, nil }
func (stubStore) Viewers(context.Context, uint64) ([]model.MovieViewer, error) {
	return []model.MovieViewer{}, nil
}
func (stubStore) Book(context.Context, uint64, uint64) error      { return nil }
func (stubStore) Rate(context.Context, uint64, uint64, int) error { return nil }

type stubUsers struct{}

func (stubUsers) Create(context.Context, *model.User) error            { return nil }
func (stubUsers) Delete(context.Context, uint64) error                 { return nil }
func (stubUsers) GetByID(context.Context, uint64) (*model.User, error) { return &model.User{}, nil }
func (stubUsers) List(context.Context) ([]model.User, error)           { return []model.User{}, nil }
func (stubUsers) BookedMovies(context.Context, uint64) ([]model.BookedMovie, error) {
	return []model.BookedMovie{}, nil
}

type stubRec struct{}

func (stubRec) Popular(context.Context, uint64) (recommend.PopularityResult, error) {
	return recommend.PopularityResult{}, nil
}
func (stubRec) Collaborative(context.Context, uint64) (recommend.CollaborativeResult, error) {
	return recommend.CollaborativeResult{}, nil
}

type stubInit struct{}

func (stubInit) Initialize(context.Context) (seed.Report, error) { return seed.Report{}, nil }
func (stubInit) Reset(context.Context) (seed.Report, error)      { return seed.Report{}, nil }

type schemaFlag bool

func (s schemaFlag) Initialized(context.Context) (bool, error) { return bool(s), nil }

const secret = "s3cret"

func newServer(initialized bool) *echo.Echo {
	e := echo.New()
	Register(e, Handlers{
		Health:          &handler.HealthHandler{},
		Auth:            handler.NewAuthHandler(config.Config{JWTSecret: secret, AccessTTL: time.Minute}),
		Movies:          handler.NewMovieHandler(stubStore{}, nil),
		Users:           handler.NewUserHandler(stubUsers{}, nil),
		Reservations:    handler.NewReservationHandler(stubStore{}, stubStore{}, stubUsers{}, nil, nil),
		Recommendations: handler.NewRecommendationHandler(stubRec{}),
		Admin:           handler.NewAdminHandler(stubInit{}, nil),
	}, Deps{JWTSecret: secret, Schema: schemaFlag(initialized)})
	return e
}

func TestRoutes(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, "operator", utils.RoleOperator, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name        string
		initialized bool
		method      string
		target      string
		body        string
		auth        bool
		status      int
	}{
		{"health", false, http.MethodGet, "/healthz", "", false, http.StatusOK},
		{"read before init", false, http.MethodGet, "/v1/movies", "", false, http.StatusServiceUnavailable},
		{"read", true, http.MethodGet, "/v1/movies", "", false, http.StatusOK},
		{"recommendation", true, http.MethodGet, "/v1/users/1/recommendations/collaborative", "", false, http.StatusOK},
		{"write without token", true, http.MethodPost, "/v1/movies", `{"title":"a","director":"b","price":1}`, false, http.StatusUnauthorized},
		{"write", true, http.MethodPost, "/v1/movies", `{"title":"a","director":"b","price":1}`, true, http.StatusCreated},
		{"write before init", false, http.MethodPost, "/v1/reservations", `{"movie_id":1,"user_id":1}`, true, http.StatusServiceUnavailable},
		{"init without token", false, http.MethodPost, "/v1/admin/init", "", false, http.StatusUnauthorized},
		{"init before schema", false, http.MethodPost, "/v1/admin/init", "", true, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			if tt.auth {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
			}
			rec := httptest.NewRecorder()
			newServer(tt.initialized).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.target, rec.Code, tt.status, rec.Body)
			}
		})
	}
}
