package recommend

import (
	"context"
	"errors"
	"slices"

	"github.com/iliyamo/cinema-recommender/internal/model"
)

// memStore is an in-memory Store used by the tests in this package.
type memStore struct {
	users        []uint64
	movies       map[uint64]model.Movie
	reservations []model.Reservation
	snapshots    int
}

func newMemStore(users []uint64, movieIDs ...uint64) *memStore {
	s := &memStore{users: users, movies: map[uint64]model.Movie{}}
	for _, id := range movieIDs {
		s.movies[id] = model.Movie{ID: id, Title: "movie", Director: "director", Price: 1000}
	}
	return s
}

func (s *memStore) book(movieID, userID uint64) {
	s.reservations = append(s.reservations, model.Reservation{MovieID: movieID, UserID: userID})
}

func (s *memStore) rate(movieID, userID uint64, rating int) {
	r := rating
	s.reservations = append(s.reservations, model.Reservation{MovieID: movieID, UserID: userID, Rating: &r})
}

func (s *memStore) ReadSnapshot(_ context.Context, fn func(Source) error) error {
	s.snapshots++
	return fn(s)
}

func (s *memStore) UserExists(_ context.Context, userID uint64) (bool, error) {
	return slices.Contains(s.users, userID), nil
}

func (s *memStore) UserIDs(context.Context) ([]uint64, error) {
	out := slices.Clone(s.users)
	slices.Sort(out)
	return out, nil
}

func (s *memStore) MovieIDs(context.Context) ([]uint64, error) {
	out := make([]uint64, 0, len(s.movies))
	for id := range s.movies {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (s *memStore) RatedReservations(context.Context) ([]model.Rating, error) {
	var out []model.Rating
	for _, r := range s.reservations {
		if r.Rating != nil {
			out = append(out, model.Rating{UserID: r.UserID, MovieID: r.MovieID, Value: *r.Rating})
		}
	}
	return out, nil
}

func (s *memStore) UnratedMovieIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	all, _ := s.MovieIDs(ctx)
	var out []uint64
	for _, id := range all {
		rated := false
		for _, r := range s.reservations {
			if r.UserID == userID && r.MovieID == id && r.Rating != nil {
				rated = true
			}
		}
		if !rated {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *memStore) UnseenMovieStats(ctx context.Context, userID uint64) ([]model.MovieStats, error) {
	all, _ := s.MovieIDs(ctx)
	var out []model.MovieStats
	for _, id := range all {
		seen := false
		for _, r := range s.reservations {
			if r.UserID == userID && r.MovieID == id {
				seen = true
			}
		}
		if !seen {
			st, _ := s.MovieStats(ctx, id)
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) MovieStats(_ context.Context, movieID uint64) (model.MovieStats, error) {
	m, ok := s.movies[movieID]
	if !ok {
		return model.MovieStats{}, errors.New("movie not found")
	}
	st := model.MovieStats{Movie: m}
	var sum, n int
	for _, r := range s.reservations {
		if r.MovieID != movieID {
			continue
		}
		st.Reservations++
		if r.Rating != nil {
			sum += *r.Rating
			n++
		}
	}
	if n > 0 {
		avg := float64(sum) / float64(n)
		st.AvgRating = &avg
	}
	return st, nil
}
