// Package queue defines the reservation events carried over RabbitMQ and
// the consumer that appends them to a log file.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// QueueName is the durable queue both publisher and consumer declare.
const QueueName = "movie.events"

// Event types.
const (
	EventBooked = "reservation.booked"
	EventRated  = "reservation.rated"
)

// ReservationEvent is published after a booking or rating commits.
// Rating is set only for EventRated.
type ReservationEvent struct {
	Type       string `json:"type"`
	MovieID    uint64 `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name"`
	Rating     *int   `json:"rating,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewBooked builds a reservation.booked event stamped with now.
func NewBooked(movieID uint64, title string, userID uint64, name string, now time.Time) ReservationEvent {
	return ReservationEvent{
		Type:       EventBooked,
		MovieID:    movieID,
		MovieTitle: title,
		UserID:     userID,
		UserName:   name,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
}

// NewRated builds a reservation.rated event stamped with now.
func NewRated(movieID uint64, title string, userID uint64, name string, rating int, now time.Time) ReservationEvent {
	ev := NewBooked(movieID, title, userID, name, now)
	ev.Type = EventRated
	ev.Rating = &rating
	return ev
}

// LogLine renders the event as one line of the reservation log.
func (ev ReservationEvent) LogLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | movie_id=%d | movie=%q | user_id=%d | user=%q",
		ev.OccurredAt, ev.Type, ev.MovieID, ev.MovieTitle, ev.UserID, ev.UserName)
	if ev.Rating != nil {
		fmt.Fprintf(&b, " | rating=%d", *ev.Rating)
	}
	b.WriteString("\n")
	return b.String()
}
