package model

// Movie represents a row in the `movie` table.  Titles are unique across
// the catalog and prices are whole currency units.
//
// Fields:
//  ID       – primary key identifier.
//  Title    – unique title of the movie.
//  Director – name of the director.
//  Price    – ticket price, 0 to 100000.
type Movie struct {
    ID       uint64 `json:"id"`       // movie.id
    Title    string `json:"title"`    // movie.title
    Director string `json:"director"` // movie.director
    Price    int    `json:"price"`    // movie.price
}

// MovieStats is a movie together with its reservation aggregates.  It is
// the result of joining `movie` with `reservation` and grouping by movie.
// AvgRating is nil when no reservation of the movie carries a rating.
type MovieStats struct {
    Movie
    Reservations int      `json:"reservation"` // COUNT(reservation.movie_id)
    AvgRating    *float64 `json:"avg_rating"`  // AVG(reservation.rating), nullable
}
