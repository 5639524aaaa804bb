// Package recommend picks a movie to recommend to a user.  It offers the
// two single-query strategies (most reserved, best average rating) and
// user-based collaborative filtering over a mean-imputed rating matrix.
//
// All matrices are built from one store snapshot per request and are
// discarded when the request returns.
package recommend

import (
	"slices"

	"github.com/iliyamo/cinema-recommender/internal/model"
)

// Index maps ids to matrix positions.  Positions follow ascending id order
// so two indexes built from the same ids agree.
type Index struct {
	ids []uint64
	pos map[uint64]int
}

// NewIndex builds an Index over ids.  The input slice is not modified.
func NewIndex(ids []uint64) Index {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	pos := make(map[uint64]int, len(sorted))
	for i, id := range sorted {
		pos[id] = i
	}
	return Index{ids: sorted, pos: pos}
}

// Len returns the number of ids in the index.
func (x Index) Len() int { return len(x.ids) }

// Position returns the matrix position of id.
func (x Index) Position(id uint64) (int, bool) {
	i, ok := x.pos[id]
	return i, ok
}

// ID returns the id stored at position i.
func (x Index) ID(i int) uint64 { return x.ids[i] }

// RatingMatrix is a dense users × movies matrix of ratings.  Cells a user
// did not rate hold the mean of that user's known ratings, or 0 when the
// user rated nothing.  Rated reports which rows had at least one rating so
// callers never have to read that from zeros.
type RatingMatrix struct {
	Users  Index
	Movies Index
	cells  [][]float64
	rated  []bool
}

// BuildRatingMatrix places every rating at (user, movie) and imputes the
// remaining cells row by row.  Ratings whose user or movie is not in the
// given id sets are ignored.
func BuildRatingMatrix(userIDs, movieIDs []uint64, ratings []model.Rating) *RatingMatrix {
	users := NewIndex(userIDs)
	movies := NewIndex(movieIDs)

	cells := make([][]float64, users.Len())
	known := make([][]bool, users.Len())
	for i := range cells {
		cells[i] = make([]float64, movies.Len())
		known[i] = make([]bool, movies.Len())
	}

	for _, r := range ratings {
		i, ok := users.Position(r.UserID)
		if !ok {
			continue
		}
		j, ok := movies.Position(r.MovieID)
		if !ok {
			continue
		}
		cells[i][j] = float64(r.Value)
		known[i][j] = true
	}

	rated := make([]bool, users.Len())
	for i, row := range cells {
		var sum float64
		var n int
		for j, v := range row {
			if known[i][j] {
				sum += v
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
			rated[i] = true
		}
		for j := range row {
			if !known[i][j] {
				row[j] = mean
			}
		}
	}

	return &RatingMatrix{Users: users, Movies: movies, cells: cells, rated: rated}
}

// At returns the (possibly imputed) rating of user row i for movie column j.
func (m *RatingMatrix) At(i, j int) float64 { return m.cells[i][j] }

// Row returns user row i.  The slice is shared with the matrix.
func (m *RatingMatrix) Row(i int) []float64 { return m.cells[i] }

// Rated reports whether user row i has at least one real rating.
func (m *RatingMatrix) Rated(i int) bool { return m.rated[i] }
