package recommend

import (
	"errors"
	"math"
	"testing"

	"github.com/iliyamo/cinema-recommender/internal/model"
)

// threeByThree is the fixture used for the hand-computed prediction:
//
//	user 1: movie 1 = 5, movie 2 = 3            -> [5 3 4]
//	user 2: movie 1 = 4, movie 3 = 2            -> [4 3 2]
//	user 3: movie 2 = 5                         -> [5 5 5]
func threeByThree() []model.Rating {
	return []model.Rating{
		{UserID: 1, MovieID: 1, Value: 5},
		{UserID: 1, MovieID: 2, Value: 3},
		{UserID: 2, MovieID: 1, Value: 4},
		{UserID: 2, MovieID: 3, Value: 2},
		{UserID: 3, MovieID: 2, Value: 5},
	}
}

func TestPredict_HandComputed(t *testing.T) {
	m := BuildRatingMatrix([]uint64{1, 2, 3}, []uint64{1, 2, 3}, threeByThree())
	sim := SimilarityMatrix(m)

	pred, ok, err := Predict(1, m, sim, []uint64{3})
	if err != nil || !ok {
		t.Fatalf("Predict() = %v, %v, %v", pred, ok, err)
	}

	s12 := 37 / (math.Sqrt(50) * math.Sqrt(29))
	s13 := 60 / (math.Sqrt(50) * math.Sqrt(75))
	want := (s12*2 + s13*5) / (s12 + s13)
	if pred.MovieID != 3 {
		t.Errorf("MovieID = %d, want 3", pred.MovieID)
	}
	if !almostEqual(pred.Expected, want) {
		t.Errorf("Expected = %v, want %v", pred.Expected, want)
	}
	if math.Abs(pred.Expected-3.50625) > 1e-4 {
		t.Errorf("Expected = %v, want about 3.50625", pred.Expected)
	}
}

func TestPredict_ExcludesTarget(t *testing.T) {
	ratings := []model.Rating{
		{UserID: 1, MovieID: 1, Value: 5},
		{UserID: 2, MovieID: 2, Value: 1},
	}
	m := BuildRatingMatrix([]uint64{1, 2}, []uint64{1, 2}, ratings)

	pred, ok, err := Predict(1, m, SimilarityMatrix(m), []uint64{2})
	if err != nil || !ok {
		t.Fatalf("Predict() = %v, %v, %v", pred, ok, err)
	}
	// Only user 2 contributes; including user 1 would give 3.
	if !almostEqual(pred.Expected, 1) {
		t.Errorf("Expected = %v, want 1", pred.Expected)
	}
}

func TestPredict_TieGoesToLowerID(t *testing.T) {
	ratings := []model.Rating{
		{UserID: 1, MovieID: 1, Value: 4},
		{UserID: 2, MovieID: 1, Value: 3},
	}
	m := BuildRatingMatrix([]uint64{1, 2}, []uint64{1, 2, 3}, ratings)

	pred, ok, err := Predict(1, m, SimilarityMatrix(m), []uint64{3, 2})
	if err != nil || !ok {
		t.Fatalf("Predict() = %v, %v, %v", pred, ok, err)
	}
	if pred.MovieID != 2 {
		t.Errorf("MovieID = %d, want 2", pred.MovieID)
	}
}

func TestPredict_NoSignal(t *testing.T) {
	ratings := []model.Rating{{UserID: 2, MovieID: 1, Value: 3}}
	m := BuildRatingMatrix([]uint64{1, 2}, []uint64{1, 2}, ratings)

	if _, _, err := Predict(1, m, SimilarityMatrix(m), []uint64{1, 2}); !errors.Is(err, ErrNoSignal) {
		t.Errorf("err = %v, want ErrNoSignal", err)
	}
	if _, _, err := Predict(42, m, SimilarityMatrix(m), []uint64{1}); !errors.Is(err, ErrNoSignal) {
		t.Errorf("unknown user: err = %v, want ErrNoSignal", err)
	}
}

func TestPredict_NothingToRecommend(t *testing.T) {
	tests := []struct {
		name       string
		users      []uint64
		ratings    []model.Rating
		candidates []uint64
	}{
		{
			name:       "no candidates",
			users:      []uint64{1, 2},
			ratings:    []model.Rating{{UserID: 1, MovieID: 1, Value: 3}, {UserID: 2, MovieID: 1, Value: 3}},
			candidates: nil,
		},
		{
			name:       "other users have zero similarity",
			users:      []uint64{1, 2},
			ratings:    []model.Rating{{UserID: 1, MovieID: 1, Value: 3}},
			candidates: []uint64{2},
		},
		{
			name:       "no other users",
			users:      []uint64{1},
			ratings:    []model.Rating{{UserID: 1, MovieID: 1, Value: 3}},
			candidates: []uint64{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildRatingMatrix(tt.users, []uint64{1, 2}, tt.ratings)
			_, ok, err := Predict(1, m, SimilarityMatrix(m), tt.candidates)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if ok {
				t.Error("ok = true, want false")
			}
		})
	}
}
