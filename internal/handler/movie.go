package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/table"
)

// MovieHandler serves the movie catalog.
type MovieHandler struct {
	Movies MovieStore
	Cache  Purger
}

// NewMovieHandler panics on a nil store.
func NewMovieHandler(movies MovieStore, cache Purger) *MovieHandler {
	if movies == nil {
		panic("nil store passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies, Cache: cache}
}

type createMovieReq struct {
	Title    string `json:"title" validate:"required,max=128"`
	Director string `json:"director" validate:"required,max=64"`
	Price    *int   `json:"price" validate:"required,price"`
}

// List handles GET /v1/movies: every movie with its reservation count and
// average rating, ordered by id.
func (h *MovieHandler) List(c echo.Context) error {
	format, err := outputFormat(c)
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	movies, err := h.Movies.ListWithStats(ctx)
	if err != nil {
		return fail(c, err, nil)
	}
	t := movieStatsTable()
	for _, m := range movies {
		t.Append(m.ID, m.Title, m.Director, m.Price, m.Reservations, m.AvgRating)
	}
	return respond(c, format, movies, t)
}

// Create handles POST /v1/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	m := &model.Movie{Title: req.Title, Director: req.Director, Price: *req.Price}
	if err := h.Movies.Create(ctx, m); err != nil {
		return fail(c, err, messages{
			repository.ErrMovieExists: fmt.Sprintf("Movie %s already exists", req.Title),
		})
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, echo.Map{"message": "One movie successfully inserted", "movie": m})
}

// Delete handles DELETE /v1/movies/:id.  The movie's reservations are removed
// with it.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Movies.Delete(ctx, id); err != nil {
		return fail(c, err, messages{repository.ErrMovieNotFound: movieMissing(id)})
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, echo.Map{"message": "One movie successfully removed"})
}

// Viewers handles GET /v1/movies/:id/users: the users who booked the movie
// with their ratings.
func (h *MovieHandler) Viewers(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	format, err := outputFormat(c)
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	viewers, err := h.Movies.Viewers(ctx, id)
	if err != nil {
		return fail(c, err, messages{repository.ErrMovieNotFound: movieMissing(id)})
	}
	t := table.New("id", "name", "age", "rating")
	for _, v := range viewers {
		t.Append(v.ID, v.Name, v.Age, v.Rating)
	}
	return respond(c, format, viewers, t)
}
