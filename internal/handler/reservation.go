package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/queue"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/service"
)

// publishTimeout bounds the event publish after a committed mutation.
const publishTimeout = 3 * time.Second

// ReservationHandler books movies and records ratings.  Events are
// published after the store commits.
type ReservationHandler struct {
	Reservations ReservationStore
	Movies       MovieStore
	Users        UserStore
	Events       service.Publisher
	Cache        Purger
	Now          func() time.Time
}

// NewReservationHandler panics on a nil store.  A nil publisher drops events.
func NewReservationHandler(res ReservationStore, movies MovieStore, users UserStore, events service.Publisher, cache Purger) *ReservationHandler {
	if res == nil || movies == nil || users == nil {
		panic("nil store passed to NewReservationHandler")
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	return &ReservationHandler{Reservations: res, Movies: movies, Users: users, Events: events, Cache: cache, Now: time.Now}
}

type bookReq struct {
	MovieID uint64 `json:"movie_id" validate:"required,gt=0"`
	UserID  uint64 `json:"user_id" validate:"required,gt=0"`
}

type rateReq struct {
	MovieID uint64 `json:"movie_id" validate:"required,gt=0"`
	UserID  uint64 `json:"user_id" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"rating"`
}

// Book handles POST /v1/reservations.  A movie takes at most
// repository.MaxReservationsPerMovie reservations and a user books a movie
// once.
func (h *ReservationHandler) Book(c echo.Context) error {
	var req bookReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Reservations.Book(ctx, req.MovieID, req.UserID); err != nil {
		return fail(c, err, messages{
			repository.ErrMovieNotFound: movieMissing(req.MovieID),
			repository.ErrUserNotFound:  userMissing(req.UserID),
			repository.ErrAlreadyBooked: fmt.Sprintf("User %d already booked movie %d", req.UserID, req.MovieID),
			repository.ErrFullyBooked:   fmt.Sprintf("Movie %d has already been fully booked", req.MovieID),
		})
	}
	purge(ctx, h.Cache)
	h.publish(ctx, req.MovieID, req.UserID, nil)
	return c.JSON(http.StatusCreated, echo.Map{"message": "Movie successfully booked"})
}

// Rate handles POST /v1/ratings.  Only a booked, not yet rated reservation
// can be rated.
func (h *ReservationHandler) Rate(c echo.Context) error {
	var req rateReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Reservations.Rate(ctx, req.MovieID, req.UserID, req.Rating); err != nil {
		return fail(c, err, messages{
			repository.ErrMovieNotFound: movieMissing(req.MovieID),
			repository.ErrUserNotFound:  userMissing(req.UserID),
			repository.ErrNotBooked:     fmt.Sprintf("User %d has not booked movie %d yet", req.UserID, req.MovieID),
			repository.ErrAlreadyRated:  fmt.Sprintf("User %d has already rated movie %d", req.UserID, req.MovieID),
		})
	}
	purge(ctx, h.Cache)
	h.publish(ctx, req.MovieID, req.UserID, &req.Rating)
	return c.JSON(http.StatusOK, echo.Map{"message": "Movie successfully rated"})
}

// publish sends the event for a committed booking or rating.  Lookup and
// publish failures are logged by the publisher and otherwise ignored.
func (h *ReservationHandler) publish(ctx context.Context, movieID, userID uint64, rating *int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	var title, name string
	if m, err := h.Movies.GetByID(ctx, movieID); err == nil {
		title = m.Title
	}
	if u, err := h.Users.GetByID(ctx, userID); err == nil {
		name = u.Name
	}
	ev := queue.NewBooked(movieID, title, userID, name, h.Now())
	if rating != nil {
		ev = queue.NewRated(movieID, title, userID, name, *rating, h.Now())
	}
	_ = h.Events.Publish(ctx, ev)
}
