// Package handler implements the HTTP endpoints.  Handlers depend on the
// small store interfaces below so tests can swap in fakes.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/seed"
	"github.com/iliyamo/cinema-recommender/internal/table"
	"github.com/iliyamo/cinema-recommender/internal/validation"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// MovieStore is the movie side of the store.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	ListWithStats(ctx context.Context) ([]model.MovieStats, error)
	Viewers(ctx context.Context, movieID uint64) ([]model.MovieViewer, error)
}

// UserStore is the user side of the store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	BookedMovies(ctx context.Context, userID uint64) ([]model.BookedMovie, error)
}

// ReservationStore books and rates.
type ReservationStore interface {
	Book(ctx context.Context, movieID, userID uint64) error
	Rate(ctx context.Context, movieID, userID uint64, rating int) error
}

// Recommender runs the recommendation strategies.
type Recommender interface {
	Popular(ctx context.Context, userID uint64) (recommend.PopularityResult, error)
	Collaborative(ctx context.Context, userID uint64) (recommend.CollaborativeResult, error)
}

// Initializer creates and reloads the schema.
type Initializer interface {
	Initialize(ctx context.Context) (seed.Report, error)
	Reset(ctx context.Context) (seed.Report, error)
}

// Purger drops cached responses after a mutation.
type Purger interface {
	Purge(ctx context.Context) error
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// bind decodes and validates the request body.  When it returns false the
// error response has already been written.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validation.Struct(req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "fields": verr.Fields})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}

// errorStatus maps store and recommender errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrMovieNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, recommend.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrMovieExists),
		errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrAlreadyBooked),
		errors.Is(err, repository.ErrFullyBooked),
		errors.Is(err, repository.ErrNotBooked),
		errors.Is(err, repository.ErrAlreadyRated),
		errors.Is(err, repository.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, recommend.ErrNoSignal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// messages overrides the error text of specific sentinels.
type messages map[error]string

// fail writes err as a JSON error.  Unmapped errors are logged and hidden.
func fail(c echo.Context, err error, msgs messages) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	for target, msg := range msgs {
		if errors.Is(err, target) {
			return c.JSON(status, echo.Map{"error": msg})
		}
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func movieMissing(id uint64) string { return fmt.Sprintf("Movie %d does not exist", id) }
func userMissing(id uint64) string  { return fmt.Sprintf("User %d does not exist", id) }

// Output formats chosen with ?format=.
const (
	formatJSON  = "json"
	formatTable = "table"
)

func outputFormat(c echo.Context) (string, error) {
	switch f := c.QueryParam("format"); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatTable:
		return formatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

// respond writes v as JSON, or the tables as plain text for
// ?format=table.  Several tables are separated by a blank line.
func respond(c echo.Context, format string, v any, tables ...fmt.Stringer) error {
	if format != formatTable {
		return c.JSON(http.StatusOK, v)
	}
	var out []byte
	for i, t := range tables {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, t.String()...)
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, out)
}

// titled prefixes a table with a heading line, as the rating-based and
// popularity-based sections are printed.
type titled struct {
	title string
	table *table.Table
}

func (t titled) String() string { return t.title + "\n\n" + t.table.String() }

// purge drops cached responses; failures only cost freshness.
func purge(ctx context.Context, p Purger) {
	if p == nil {
		return
	}
	if err := p.Purge(ctx); err != nil {
		logging.Warn().Err(err).Msg("cache purge failed")
	}
}

func movieStatsTable(rows ...*model.MovieStats) *table.Table {
	t := table.New("id", "title", "director", "price", "reservation", "avg_rating")
	for _, m := range rows {
		if m != nil {
			t.Append(m.ID, m.Title, m.Director, m.Price, m.Reservations, m.AvgRating)
		}
	}
	return t
}
