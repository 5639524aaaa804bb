package recommend

import (
	"errors"
	"slices"
)

// ErrNoSignal is returned when the target user has no ratings, so no
// similarity to other users can be trusted.
var ErrNoSignal = errors.New("rating does not exist")

// Prediction is the movie chosen by collaborative filtering and the rating
// the user is expected to give it.  Expected is not rounded.
type Prediction struct {
	MovieID  uint64
	Expected float64
}

// Predict estimates the target user's rating of every candidate movie as
// the similarity-weighted average of the other users' ratings and returns
// the candidate with the highest estimate.  Candidates are visited in
// ascending id order and only a strictly greater estimate replaces the
// current best, so ties go to the lower id.
//
// The boolean result is false when there is nothing to recommend: no
// candidates, or every candidate has a zero total weight.
func Predict(userID uint64, m *RatingMatrix, sim [][]float64, candidates []uint64) (Prediction, bool, error) {
	t, ok := m.Users.Position(userID)
	if !ok || !m.Rated(t) {
		return Prediction{}, false, ErrNoSignal
	}

	ordered := slices.Clone(candidates)
	slices.Sort(ordered)

	var best Prediction
	found := false
	weights := sim[t]
	for _, movieID := range ordered {
		j, ok := m.Movies.Position(movieID)
		if !ok {
			continue
		}
		var num, den float64
		for i := 0; i < m.Users.Len(); i++ {
			if i == t {
				continue
			}
			num += weights[i] * m.At(i, j)
			den += weights[i]
		}
		if den == 0 {
			continue
		}
		expected := num / den
		if !found || expected > best.Expected {
			best = Prediction{MovieID: movieID, Expected: expected}
			found = true
		}
	}
	return best, found, nil
}
