package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-recommender/internal/model"
)

// UserRepo provides CRUD operations for users.  The table is named `user`,
// which must be quoted in every statement.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user and populates its ID.  ErrUserExists is returned
// when another user has the same name and age.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO `user` (name, age) VALUES (?, ?)", u.Name, u.Age)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDupEntry {
			return ErrUserExists
		}
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// Delete removes a user and, through the foreign key, their reservations.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM `user` WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return getUser(ctx, r.db, id)
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, age FROM `user` ORDER BY id")
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Age); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// BookedMovies returns the movies booked by the user with the user's
// rating of each, ordered by movie id.
func (r *UserRepo) BookedMovies(ctx context.Context, userID uint64) ([]model.BookedMovie, error) {
	if _, err := getUser(ctx, r.db, userID); err != nil {
		return nil, err
	}
	const q = `SELECT m.id, m.title, m.director, m.price, r.rating
               FROM movie m
               INNER JOIN reservation r ON r.movie_id = m.id
               WHERE r.user_id = ?
               ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make([]model.BookedMovie, 0)
	for rows.Next() {
		var b model.BookedMovie
		var rating sql.NullInt64
		if err := rows.Scan(&b.ID, &b.Title, &b.Director, &b.Price, &rating); err != nil {
			return nil, err
		}
		b.Rating = nullInt(rating)
		out = append(out, b)
	}
	return out, rows.Err()
}

func getUser(ctx context.Context, q queryer, id uint64) (*model.User, error) {
	var u model.User
	err := q.QueryRowContext(ctx, "SELECT id, name, age FROM `user` WHERE id = ?", id).Scan(&u.ID, &u.Name, &u.Age)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, translate(err)
	}
	return &u, nil
}
