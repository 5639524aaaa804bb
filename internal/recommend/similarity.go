package recommend

import "math"

// Cosine returns the cosine similarity of a and b.  It is 0 when either
// vector has zero magnitude.  a and b must have the same length.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for k := range a {
		dot += a[k] * b[k]
		na += a[k] * a[k]
		nb += b[k] * b[k]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SimilarityMatrix returns the users × users cosine similarity of the rows
// of m.  The result is symmetric; the diagonal is 1 for rows with non-zero
// magnitude and 0 otherwise.
func SimilarityMatrix(m *RatingMatrix) [][]float64 {
	n := m.Users.Len()
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if Cosine(m.Row(i), m.Row(i)) != 0 {
			sim[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			s := Cosine(m.Row(i), m.Row(j))
			sim[i][j] = s
			sim[j][i] = s
		}
	}
	return sim
}
