// Package seed bulk-loads the catalog from a CSV file whose rows are
// (title, director, price, name, age): each row books one movie for one
// user, creating the movie and the user on first sight.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/repository"
)

// Sink receives the rows accepted by Load.  repository.BulkWriter is the
// production implementation.
type Sink interface {
	InsertMovie(ctx context.Context, title, director string, price int) (uint64, error)
	InsertUser(ctx context.Context, name string, age int) (uint64, error)
	InsertReservation(ctx context.Context, movieID, userID uint64) error
}

// Report summarizes one bulk load.
type Report struct {
	Movies       int      `json:"movies"`
	Users        int      `json:"users"`
	Reservations int      `json:"reservations"`
	Skipped      []string `json:"skipped"`
}

type userKey struct {
	name string
	age  int
}

// arena tracks ids assigned during one load.  It replaces lookups against
// the database while the load transaction is still open.
type arena struct {
	movies   map[string]uint64
	users    map[userKey]uint64
	bookedBy map[uint64][]uint64
}

func newArena() *arena {
	return &arena{
		movies:   make(map[string]uint64),
		users:    make(map[userKey]uint64),
		bookedBy: make(map[uint64][]uint64),
	}
}

// rejectBooking returns why a row booking movieID for key must be skipped,
// or "" when it may proceed.
func (a *arena) rejectBooking(movieID uint64, key userKey, ageOK bool) string {
	booked := a.bookedBy[movieID]
	if userID, ok := a.users[key]; ok && ageOK {
		if errors.Is(repository.CheckBooking(booked, userID), repository.ErrAlreadyBooked) {
			return fmt.Sprintf("User %d already booked movie %d", userID, movieID)
		}
	}
	if len(booked) >= repository.MaxReservationsPerMovie {
		return fmt.Sprintf("Movie %d has already been fully booked", movieID)
	}
	return ""
}

// Load parses the CSV from r and writes it to sink.  It is Parse followed
// by Apply.
func Load(ctx context.Context, r io.Reader, sink Sink) (Report, error) {
	rows, err := Parse(r)
	if err != nil {
		return Report{Skipped: []string{}}, err
	}
	return Apply(ctx, rows, sink)
}

// Parse reads every record after the header.  Quotes inside unquoted
// fields are kept literally.  A malformed file fails here, before anything
// is written.
func Parse(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
}

// Apply writes every acceptable row to sink.  Rows that repeat a booking,
// overbook a movie or carry an invalid price or age are skipped and listed
// in the report.  Any error from sink aborts the load.
func Apply(ctx context.Context, rows [][]string, sink Sink) (Report, error) {
	report := Report{Skipped: []string{}}
	a := newArena()
	skip := func(line int, msg string) {
		logging.Warn().Int("line", line).Msg(msg)
		report.Skipped = append(report.Skipped, msg)
	}

	for i, rec := range rows {
		line := i + 2
		if len(rec) != 5 {
			skip(line, fmt.Sprintf("Line %d should have 5 fields", line))
			continue
		}
		title, director, price, name, age := rec[0], rec[1], rec[2], rec[3], rec[4]

		ageVal, ageOK := ParseBounded(age, 12, 110)
		key := userKey{name: name, age: ageVal}

		movieID, movieKnown := a.movies[title]
		if movieKnown {
			if msg := a.rejectBooking(movieID, key, ageOK); msg != "" {
				skip(line, msg)
				continue
			}
		} else {
			priceVal, ok := ParseBounded(price, 0, 100000)
			if !ok {
				skip(line, "Movie price should be from 0 to 100000")
				continue
			}
			var err error
			movieID, err = sink.InsertMovie(ctx, title, director, priceVal)
			if err != nil {
				return report, fmt.Errorf("line %d: insert movie: %w", line, err)
			}
			a.movies[title] = movieID
			report.Movies++
		}

		userID, userKnown := a.users[key]
		if !ageOK {
			skip(line, "User age should be from 12 to 110")
			continue
		}
		if !userKnown {
			var err error
			userID, err = sink.InsertUser(ctx, name, ageVal)
			if err != nil {
				return report, fmt.Errorf("line %d: insert user: %w", line, err)
			}
			a.users[key] = userID
			report.Users++
		}

		if err := sink.InsertReservation(ctx, movieID, userID); err != nil {
			return report, fmt.Errorf("line %d: insert reservation: %w", line, err)
		}
		a.bookedBy[movieID] = append(a.bookedBy[movieID], userID)
		report.Reservations++
	}
	return report, nil
}

// ParseBounded parses a non-negative decimal integer made only of digits
// and checks lo <= n <= hi.
func ParseBounded(s string, lo, hi int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
