package nutrition

import (
	"math"
	"sort"

	"github.com/ariefcatur/fitmeal/internal/catalog"
)

const (
	// MaxRecommendations is the result size cap.
	MaxRecommendations = 5
	// MealShare is the fraction of the daily calorie target one meal should cover.
	MealShare = 0.3

	NoteGeneric  = "No calorie target found; showing the lowest priced meals."
	NoteTargeted = "Meals closest to 30% of your daily calorie target."
)

type Recommendation struct {
	Recommendations []catalog.Meal `json:"recommendations"`
	Note            string         `json:"note"`
}

// Recommend ranks meals, which must be in catalog order (cheapest first).
// Without a calorie target it returns the first five; with target T it
// returns the five meals closest to 0.3*T, ties keeping catalog order.
func Recommend(p *Profile, meals []catalog.Meal) Recommendation {
	n := min(MaxRecommendations, len(meals))
	if p == nil || p.CaloriesPerDay == nil {
		return Recommendation{Recommendations: append([]catalog.Meal{}, meals[:n]...), Note: NoteGeneric}
	}

	target := float64(*p.CaloriesPerDay) * MealShare
	ranked := append([]catalog.Meal{}, meals...)
	score := func(m catalog.Meal) float64 { return math.Abs(float64(m.CaloriesOrZero()) - target) }
	sort.SliceStable(ranked, func(i, j int) bool { return score(ranked[i]) < score(ranked[j]) })
	return Recommendation{Recommendations: ranked[:n], Note: NoteTargeted}
}
