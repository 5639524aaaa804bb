package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/queue"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/seed"
)

// memStore is an in-memory movie, user and reservation store.
type memStore struct {
	mu       sync.Mutex
	movies   []model.Movie
	users    []model.User
	bookings map[uint64][]uint64 // movie id -> user ids in booking order
	ratings  map[[2]uint64]int   // (movie, user) -> rating
}

func newMemStore() *memStore {
	return &memStore{bookings: map[uint64][]uint64{}, ratings: map[[2]uint64]int{}}
}

func (s *memStore) movie(id uint64) (model.Movie, bool) {
	for _, m := range s.movies {
		if m.ID == id {
			return m, true
		}
	}
	return model.Movie{}, false
}

func (s *memStore) user(id uint64) (model.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func (s *memStore) Create(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.movies {
		if x.Title == m.Title {
			return repository.ErrMovieExists
		}
	}
	m.ID = uint64(len(s.movies) + 1)
	s.movies = append(s.movies, *m)
	return nil
}

func (s *memStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.movies, func(m model.Movie) bool { return m.ID == id })
	if i < 0 {
		return repository.ErrMovieNotFound
	}
	s.movies = slices.Delete(s.movies, i, i+1)
	delete(s.bookings, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movie(id)
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return &m, nil
}

func (s *memStore) ListWithStats(context.Context) ([]model.MovieStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MovieStats, 0, len(s.movies))
	for _, m := range s.movies {
		st := model.MovieStats{Movie: m, Reservations: len(s.bookings[m.ID])}
		sum, n := 0, 0
		for _, u := range s.bookings[m.ID] {
			if r, ok := s.ratings[[2]uint64{m.ID, u}]; ok {
				sum += r
				n++
			}
		}
		if n > 0 {
			avg := float64(sum) / float64(n)
			st.AvgRating = &avg
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *memStore) Viewers(_ context.Context, movieID uint64) ([]model.MovieViewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movie(movieID); !ok {
		return nil, repository.ErrMovieNotFound
	}
	out := []model.MovieViewer{}
	for _, uid := range s.bookings[movieID] {
		u, _ := s.user(uid)
		v := model.MovieViewer{User: u}
		if r, ok := s.ratings[[2]uint64{movieID, uid}]; ok {
			v.Rating = &r
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *memStore) Book(_ context.Context, movieID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movie(movieID); !ok {
		return repository.ErrMovieNotFound
	}
	if _, ok := s.user(userID); !ok {
		return repository.ErrUserNotFound
	}
	if err := repository.CheckBooking(s.bookings[movieID], userID); err != nil {
		return err
	}
	s.bookings[movieID] = append(s.bookings[movieID], userID)
	return nil
}

func (s *memStore) Rate(_ context.Context, movieID, userID uint64, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movie(movieID); !ok {
		return repository.ErrMovieNotFound
	}
	if _, ok := s.user(userID); !ok {
		return repository.ErrUserNotFound
	}
	if !slices.Contains(s.bookings[movieID], userID) {
		return repository.ErrNotBooked
	}
	key := [2]uint64{movieID, userID}
	if _, ok := s.ratings[key]; ok {
		return repository.ErrAlreadyRated
	}
	s.ratings[key] = rating
	return nil
}

// memUsers is the user side of memStore; Go does not allow two Create
// methods on one type.
type memUsers struct{ *memStore }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Name == u.Name && x.Age == u.Age {
			return repository.ErrUserExists
		}
	}
	u.ID = uint64(len(s.users) + 1)
	s.users = append(s.users, *u)
	return nil
}

func (s memUsers) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.users, func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return repository.ErrUserNotFound
	}
	s.users = slices.Delete(s.users, i, i+1)
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.user(id)
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (s memUsers) List(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users), nil
}

func (s memUsers) BookedMovies(_ context.Context, userID uint64) ([]model.BookedMovie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.user(userID); !ok {
		return nil, repository.ErrUserNotFound
	}
	out := []model.BookedMovie{}
	for _, m := range s.movies {
		if slices.Contains(s.bookings[m.ID], userID) {
			b := model.BookedMovie{Movie: m}
			if r, ok := s.ratings[[2]uint64{m.ID, userID}]; ok {
				b.Rating = &r
			}
			out = append(out, b)
		}
	}
	return out, nil
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

type recordingPublisher struct{ events []queue.ReservationEvent }

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type fakeRecommender struct {
	popular recommend.PopularityResult
	collab  recommend.CollaborativeResult
	err     error
}

func (f fakeRecommender) Popular(context.Context, uint64) (recommend.PopularityResult, error) {
	return f.popular, f.err
}

func (f fakeRecommender) Collaborative(context.Context, uint64) (recommend.CollaborativeResult, error) {
	return f.collab, f.err
}

type fakeInitializer struct {
	report seed.Report
	err    error
	calls  []string
}

func (f *fakeInitializer) Initialize(context.Context) (seed.Report, error) {
	f.calls = append(f.calls, "init")
	return f.report, f.err
}

func (f *fakeInitializer) Reset(context.Context) (seed.Report, error) {
	f.calls = append(f.calls, "reset")
	return f.report, f.err
}

// do runs one request through handler h registered at route.
func do(t *testing.T, method, route, target, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Add(method, route, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body)
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assertStatus(t, rec, status)
	if want := `"error":"` + msg + `"`; !strings.Contains(rec.Body.String(), want) {
		t.Errorf("body = %s, want it to contain %s", rec.Body, want)
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %s: %v", rec.Body, err)
	}
}
