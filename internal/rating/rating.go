package rating

import (
	"math"

	"ladder-tracker/internal/domain"
)

// Calculator applies Elo updates. It holds no state beyond the K factor
// and performs no I/O, so replaying the ledger through it reproduces the
// live computation exactly.
type Calculator struct {
	k float64
}

func NewCalculator(kFactor int) *Calculator {
	return &Calculator{k: float64(kFactor)}
}

// Compute returns the post-match ratings for both sides. Ratings are
// unbounded in both directions; clamping is a policy decision that does
// not belong here.
func (c *Calculator) Compute(rating0, rating1 int, result domain.MatchResult) (int, int) {
	var score0 float64
	switch result {
	case domain.Side0Won:
		score0 = 1
	case domain.Side1Won:
		score0 = 0
	case domain.Draw:
		score0 = 0.5
	}
	score1 := 1 - score0

	expected0 := expectedScore(rating0, rating1)
	expected1 := 1 - expected0

	new0 := int(math.Round(float64(rating0) + c.k*(score0-expected0)))
	new1 := int(math.Round(float64(rating1) + c.k*(score1-expected1)))
	return new0, new1
}

func expectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}
