package repository

import "slices"

// MaxReservationsPerMovie caps the number of reservations one movie can have.
const MaxReservationsPerMovie = 10

// CheckBooking decides whether userID may book a movie that is already
// booked by bookedBy.  A repeated booking is reported before capacity.
func CheckBooking(bookedBy []uint64, userID uint64) error {
	if slices.Contains(bookedBy, userID) {
		return ErrAlreadyBooked
	}
	if len(bookedBy) >= MaxReservationsPerMovie {
		return ErrFullyBooked
	}
	return nil
}
