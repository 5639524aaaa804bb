package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/model"
	"github.com/iliyamo/cinema-recommender/internal/recommend"
	"github.com/iliyamo/cinema-recommender/internal/table"
)

// RecommendationHandler exposes the recommendation strategies.
type RecommendationHandler struct {
	Rec Recommender
}

// NewRecommendationHandler panics on a nil recommender.
func NewRecommendationHandler(rec Recommender) *RecommendationHandler {
	if rec == nil {
		panic("nil recommender passed to NewRecommendationHandler")
	}
	return &RecommendationHandler{Rec: rec}
}

type popularityResp struct {
	ByRating     *model.MovieStats `json:"by_rating"`
	ByPopularity *model.MovieStats `json:"by_popularity"`
}

type collaborativeResp struct {
	ID             uint64   `json:"id"`
	Title          string   `json:"title"`
	Director       string   `json:"director"`
	Price          int      `json:"price"`
	AvgRating      *float64 `json:"avg_rating"`
	ExpectedRating float64  `json:"expected_rating"`
}

func recommendMessages(userID uint64) messages {
	return messages{
		recommend.ErrUnknownUser: userMissing(userID),
		recommend.ErrNoSignal:    "Rating does not exist",
	}
}

// Popularity handles GET /v1/users/:id/recommendations/popularity: the
// best rated and the most booked movie the user has not booked.  Either
// pick is null when nothing is left.
func (h *RecommendationHandler) Popularity(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	format, err := outputFormat(c)
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	res, err := h.Rec.Popular(ctx, id)
	if err != nil {
		return fail(c, err, recommendMessages(id))
	}
	return respond(c, format,
		popularityResp{ByRating: res.ByRating, ByPopularity: res.ByPopularity},
		titled{"Rating-based", movieStatsTable(res.ByRating)},
		titled{"Popularity-based", movieStatsTable(res.ByPopularity)},
	)
}

// Collaborative handles GET /v1/users/:id/recommendations/collaborative.
// The body is a list holding at most one movie; it is empty when every
// movie is rated.  A user without ratings gets 422.
func (h *RecommendationHandler) Collaborative(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	format, err := outputFormat(c)
	if err != nil {
		return badRequest(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	res, err := h.Rec.Collaborative(ctx, id)
	if err != nil {
		return fail(c, err, recommendMessages(id))
	}
	rows := make([]collaborativeResp, 0, 1)
	t := table.New("id", "title", "director", "price", "avg_rating", "expected_rating")
	if m := res.Movie; m != nil {
		rows = append(rows, collaborativeResp{
			ID: m.ID, Title: m.Title, Director: m.Director, Price: m.Price,
			AvgRating: m.AvgRating, ExpectedRating: res.Expected,
		})
		t.Append(m.ID, m.Title, m.Director, m.Price, m.AvgRating, res.Expected)
	}
	return respond(c, format, rows, t)
}
