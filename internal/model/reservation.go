package model

// Reservation records that a user booked a movie.  A pair of (MovieID,
// UserID) appears at most once.  Rating stays nil until the user rates the
// movie and is never changed afterwards.
//
// Fields:
//  MovieID – booked movie.
//  UserID  – user who booked.
//  Rating  – 1 to 5, nil until rated.
type Reservation struct {
    MovieID uint64 `json:"movie_id"` // reservation.movie_id
    UserID  uint64 `json:"user_id"`  // reservation.user_id
    Rating  *int   `json:"rating"`   // reservation.rating (nullable)
}

// Rating is a reservation that carries a rating value.  It is the input of
// the recommendation engine.
type Rating struct {
    UserID  uint64
    MovieID uint64
    Value   int
}

// BookedMovie is a movie booked by a particular user along with the
// rating the user gave it, if any.
type BookedMovie struct {
    Movie
    Rating *int `json:"rating"` // reservation.rating (nullable)
}
