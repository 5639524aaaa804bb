package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-recommender/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// movieStatsSelect joins every movie with its reservations.  Callers append
// a WHERE clause before movieStatsGroup.
const (
	movieStatsSelect = `SELECT m.id, m.title, m.director, m.price, COUNT(r.movie_id), AVG(r.rating)
               FROM movie m
               LEFT OUTER JOIN reservation r ON r.movie_id = m.id`
	movieStatsGroup = ` GROUP BY m.id, m.title, m.director, m.price ORDER BY m.id`
)

// MovieRepo provides CRUD operations for movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts a movie and populates its ID.  ErrMovieExists is returned
// when the title is already taken.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = "INSERT INTO movie (title, director, price) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Director, m.Price)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDupEntry {
			return ErrMovieExists
		}
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Delete removes a movie.  Its reservations go with it through the
// ON DELETE CASCADE foreign key.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movie WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// GetByID fetches a movie.  It returns ErrMovieNotFound if no row exists.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return getMovie(ctx, r.db, id)
}

// ListWithStats returns every movie with its reservation count and average
// rating, ordered by id.
func (r *MovieRepo) ListWithStats(ctx context.Context) ([]model.MovieStats, error) {
	return queryMovieStats(ctx, r.db, movieStatsSelect+movieStatsGroup)
}

// Viewers returns the users who booked the movie with their ratings,
// ordered by user id.
func (r *MovieRepo) Viewers(ctx context.Context, movieID uint64) ([]model.MovieViewer, error) {
	if _, err := getMovie(ctx, r.db, movieID); err != nil {
		return nil, err
	}
	const q = `SELECT u.id, u.name, u.age, r.rating
               FROM ` + "`user`" + ` u
               INNER JOIN reservation r ON r.user_id = u.id
               WHERE r.movie_id = ?
               ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make([]model.MovieViewer, 0)
	for rows.Next() {
		var v model.MovieViewer
		var rating sql.NullInt64
		if err := rows.Scan(&v.ID, &v.Name, &v.Age, &rating); err != nil {
			return nil, err
		}
		v.Rating = nullInt(rating)
		out = append(out, v)
	}
	return out, rows.Err()
}

func getMovie(ctx context.Context, q queryer, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := q.QueryRowContext(ctx, "SELECT id, title, director, price FROM movie WHERE id = ?", id).
		Scan(&m.ID, &m.Title, &m.Director, &m.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, translate(err)
	}
	return &m, nil
}

func queryMovieStats(ctx context.Context, q queryer, query string, args ...any) ([]model.MovieStats, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make([]model.MovieStats, 0)
	for rows.Next() {
		var s model.MovieStats
		var avg sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Title, &s.Director, &s.Price, &s.Reservations, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			s.AvgRating = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
