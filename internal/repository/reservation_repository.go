package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReservationRepo books movies for users and records ratings.  Each
// operation runs in its own transaction and either fully applies or leaves
// the store unchanged.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Book creates a reservation of movieID for userID.  The movie row is
// locked for the duration of the transaction so concurrent bookings of the
// same movie cannot exceed MaxReservationsPerMovie.
func (r *ReservationRepo) Book(ctx context.Context, movieID, userID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM movie WHERE id = ? FOR UPDATE", movieID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMovieNotFound
		}
		return translate(err)
	}
	if _, err := getUser(ctx, tx, userID); err != nil {
		return err
	}

	bookedBy, err := bookedUsersTx(ctx, tx, movieID)
	if err != nil {
		return err
	}
	if err := CheckBooking(bookedBy, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO reservation (movie_id, user_id) VALUES (?, ?)", movieID, userID); err != nil {
		switch mysqlErrNumber(err) {
		case mysqlDupEntry:
			return ErrAlreadyBooked
		case mysqlNoReferenced:
			return ErrUserNotFound
		}
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Rate sets the rating of an existing reservation.  A reservation can be
// rated once; ErrAlreadyRated is returned on the second attempt.
func (r *ReservationRepo) Rate(ctx context.Context, movieID, userID uint64, rating int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := getMovie(ctx, tx, movieID); err != nil {
		return err
	}
	if _, err := getUser(ctx, tx, userID); err != nil {
		return err
	}

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT rating FROM reservation WHERE movie_id = ? AND user_id = ? FOR UPDATE",
		movieID, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotBooked
		}
		return translate(err)
	}
	if current.Valid {
		return ErrAlreadyRated
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE reservation SET rating = ? WHERE movie_id = ? AND user_id = ?",
		rating, movieID, userID); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// bookedUsersTx lists the ids of users holding a reservation for movieID.
func bookedUsersTx(ctx context.Context, tx *sql.Tx, movieID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT user_id FROM reservation WHERE movie_id = ?", movieID)
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
