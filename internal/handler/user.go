package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/table"
)

// UserHandler serves users and their bookings.
type UserHandler struct {
	Users UserStore
	Cache Purger
}

// NewUserHandler panics on a nil store.
func NewUserHandler(users UserStore, cache Purger) *UserHandler {
	if users == nil {
		panic("nil store passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Cache: cache}
}

type createUserReq struct {
	Name string `json:"name" validate:"required,max=32"`
	Age  *int   `json:"age" validate:"required,age"`
}

// List handles GET /v1/users.
func (h *UserHandler) List(c echo.Context) error {
	format, err := outputFormat(c)
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, err, nil)
	}
	t := table.New("id", "name", "age")
	for _, u := range users {
		t.Append(u.ID, u.Name, u.Age)
	}
	return respond(c, format, users, t)
}

// Create handles POST /v1/users.  A (name, age) pair may exist only once.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u := &model.User{Name: req.Name, Age: *req.Age}
	if err := h.Users.Create(ctx, u); err != nil {
		return fail(c, err, messages{
			repository.ErrUserExists: fmt.Sprintf("User (%s, %d) already exists", u.Name, u.Age),
		})
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusCreated, echo.Map{"message": "One user successfully inserted", "user": u})
}

// Delete handles DELETE /v1/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(c, err, messages{repository.ErrUserNotFound: userMissing(id)})
	}
	purge(ctx, h.Cache)
	return c.JSON(http.StatusOK, echo.Map{"message": "One user successfully removed"})
}

// Movies handles GET /v1/users/:id/movies: the user's bookings with the
// user's ratings.
func (h *UserHandler) Movies(c echo.Context) error {
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
	movies, err := h.Users.BookedMovies(ctx, id)
	if err != nil {
		return fail(c, err, messages{repository.ErrUserNotFound: userMissing(id)})
	}
	t := table.New("id", "title", "director", "price", "rating")
	for _, m := range movies {
		t.Append(m.ID, m.Title, m.Director, m.Price, m.Rating)
	}
	return respond(c, format, movies, t)
}
