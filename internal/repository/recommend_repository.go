package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
)

// RecommendRepo exposes the store to the recommender.  Every request reads
// through a read-only REPEATABLE READ transaction, so users, movies and
// ratings are seen as of one point in time.
type RecommendRepo struct {
	db *sql.DB
}

// NewRecommendRepo returns a RecommendRepo bound to db.
func NewRecommendRepo(db *sql.DB) *RecommendRepo { return &RecommendRepo{db: db} }

// ReadSnapshot runs fn against a consistent snapshot of the store.
func (r *RecommendRepo) ReadSnapshot(ctx context.Context, fn func(recommend.Source) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(snapshot{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// snapshot implements recommend.Source over one transaction.
type snapshot struct {
	tx *sql.Tx
}

func (s snapshot) UserExists(ctx context.Context, userID uint64) (bool, error) {
	_, err := getUser(ctx, s.tx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s snapshot) UserIDs(ctx context.Context) ([]uint64, error) {
	return queryIDs(ctx, s.tx, "SELECT id FROM `user` ORDER BY id")
}

func (s snapshot) MovieIDs(ctx context.Context) ([]uint64, error) {
	return queryIDs(ctx, s.tx, "SELECT id FROM movie ORDER BY id")
}

func (s snapshot) RatedReservations(ctx context.Context) ([]model.Rating, error) {
	rows, err := s.tx.QueryContext(ctx, "SELECT user_id, movie_id, rating FROM reservation WHERE rating IS NOT NULL")
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s snapshot) UnratedMovieIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	const q = `SELECT id FROM movie
               WHERE id NOT IN (SELECT movie_id FROM reservation WHERE user_id = ? AND rating IS NOT NULL)
               ORDER BY id`
	return queryIDs(ctx, s.tx, q, userID)
}

func (s snapshot) UnseenMovieStats(ctx context.Context, userID uint64) ([]model.MovieStats, error) {
	const where = ` WHERE m.id NOT IN (SELECT movie_id FROM reservation WHERE user_id = ?)`
	return queryMovieStats(ctx, s.tx, movieStatsSelect+where+movieStatsGroup, userID)
}

func (s snapshot) MovieStats(ctx context.Context, movieID uint64) (model.MovieStats, error) {
	const where = ` WHERE m.id = ?`
	stats, err := queryMovieStats(ctx, s.tx, movieStatsSelect+where+movieStatsGroup, movieID)
	if err != nil {
		return model.MovieStats{}, err
	}
	if len(stats) == 0 {
		return model.MovieStats{}, ErrMovieNotFound
	}
	return stats[0], nil
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
