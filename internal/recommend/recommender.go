package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/model"
)

// ErrUnknownUser is returned when the requested user does not exist.
var ErrUnknownUser = errors.New("user does not exist")

// Source is the read side of the reservation store as seen by the
// recommender.  Every id sequence is ascending.
type Source interface {
	UserExists(ctx context.Context, userID uint64) (bool, error)
	UserIDs(ctx context.Context) ([]uint64, error)
	MovieIDs(ctx context.Context) ([]uint64, error)
	RatedReservations(ctx context.Context) ([]model.Rating, error)
	// UnratedMovieIDs lists movies the user has no rated reservation for.
	UnratedMovieIDs(ctx context.Context, userID uint64) ([]uint64, error)
	// UnseenMovieStats lists movies the user has no reservation for.
	UnseenMovieStats(ctx context.Context, userID uint64) ([]model.MovieStats, error)
	MovieStats(ctx context.Context, movieID uint64) (model.MovieStats, error)
}

// Store hands out a Source whose reads all observe the same point in
// time.  The Source must not be used after fn returns.
type Store interface {
	ReadSnapshot(ctx context.Context, fn func(Source) error) error
}

// PopularityResult holds the two single-query picks.  A nil field means no
// unseen movie was left for that strategy.
type PopularityResult struct {
	ByRating     *model.MovieStats
	ByPopularity *model.MovieStats
}

// CollaborativeResult is the collaborative filtering pick.  Movie is nil
// when there is nothing to recommend.
type CollaborativeResult struct {
	Movie    *model.MovieStats
	Expected float64
}

// Recommender runs the recommendation strategies against a Store.  It
// never writes to the store.
type Recommender struct {
	store Store
}

// New returns a Recommender reading from store.
func New(store Store) *Recommender {
	if store == nil {
		panic("nil store passed to recommend.New")
	}
	return &Recommender{store: store}
}

// Popular returns the unseen movie with the best average rating and the
// unseen movie with the most reservations.
func (r *Recommender) Popular(ctx context.Context, userID uint64) (PopularityResult, error) {
	var res PopularityResult
	err := r.store.ReadSnapshot(ctx, func(src Source) error {
		if err := requireUser(ctx, src, userID); err != nil {
			return err
		}
		unseen, err := src.UnseenMovieStats(ctx, userID)
		if err != nil {
			return fmt.Errorf("unseen movies: %w", err)
		}
		res.ByRating = pickByRating(unseen)
		res.ByPopularity = pickByPopularity(unseen)
		return nil
	})
	if err != nil {
		return PopularityResult{}, err
	}
	logEvent := logging.Info().Uint64("user_id", userID).Str("strategy", "popularity")
	if res.ByRating != nil {
		logEvent = logEvent.Uint64("by_rating", res.ByRating.ID)
	}
	if res.ByPopularity != nil {
		logEvent = logEvent.Uint64("by_popularity", res.ByPopularity.ID)
	}
	logEvent.Msg("recommendation computed")
	return res, nil
}

// Collaborative predicts the user's rating for every movie they have not
// rated and returns the movie with the highest prediction.  It returns
// ErrNoSignal when the user rated nothing.
func (r *Recommender) Collaborative(ctx context.Context, userID uint64) (CollaborativeResult, error) {
	var res CollaborativeResult
	err := r.store.ReadSnapshot(ctx, func(src Source) error {
		if err := requireUser(ctx, src, userID); err != nil {
			return err
		}
		candidates, err := src.UnratedMovieIDs(ctx, userID)
		if err != nil {
			return fmt.Errorf("unrated movies: %w", err)
		}
		userIDs, err := src.UserIDs(ctx)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		movieIDs, err := src.MovieIDs(ctx)
		if err != nil {
			return fmt.Errorf("movies: %w", err)
		}
		ratings, err := src.RatedReservations(ctx)
		if err != nil {
			return fmt.Errorf("ratings: %w", err)
		}

		m := BuildRatingMatrix(userIDs, movieIDs, ratings)
		if t, ok := m.Users.Position(userID); !ok || !m.Rated(t) {
			return ErrNoSignal
		}
		// A user who rated every movie has no candidates left.
		pred, ok, err := Predict(userID, m, SimilarityMatrix(m), candidates)
		if err != nil || !ok {
			return err
		}
		stats, err := src.MovieStats(ctx, pred.MovieID)
		if err != nil {
			return fmt.Errorf("movie %d: %w", pred.MovieID, err)
		}
		res = CollaborativeResult{Movie: &stats, Expected: pred.Expected}
		return nil
	})
	if err != nil {
		return CollaborativeResult{}, err
	}
	logEvent := logging.Info().Uint64("user_id", userID).Str("strategy", "collaborative")
	if res.Movie != nil {
		logEvent = logEvent.Uint64("movie_id", res.Movie.ID).Float64("expected", res.Expected)
	}
	logEvent.Msg("recommendation computed")
	return res, nil
}

func requireUser(ctx context.Context, src Source, userID uint64) error {
	ok, err := src.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}
	if !ok {
		return ErrUnknownUser
	}
	return nil
}

// pickByPopularity returns the movie with the most reservations, lowest id
// first on ties.
func pickByPopularity(movies []model.MovieStats) *model.MovieStats {
	var best *model.MovieStats
	for _, m := range byID(movies) {
		if best == nil || m.Reservations > best.Reservations {
			best = &m
		}
	}
	return best
}

// pickByRating returns the movie with the highest average rating, lowest
// id first on ties.  Movies without an average rank below rated ones.
func pickByRating(movies []model.MovieStats) *model.MovieStats {
	var best *model.MovieStats
	for _, m := range byID(movies) {
		switch {
		case best == nil:
			best = &m
		case m.AvgRating == nil:
		case best.AvgRating == nil || *m.AvgRating > *best.AvgRating:
			best = &m
		}
	}
	return best
}

func byID(movies []model.MovieStats) []model.MovieStats {
	out := slices.Clone(movies)
	slices.SortStableFunc(out, func(a, b model.MovieStats) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
