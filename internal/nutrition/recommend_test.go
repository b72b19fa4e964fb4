package nutrition

import (
	"fmt"
	"testing"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func meal(name string, kcal *int) catalog.Meal {
	return catalog.Meal{ID: name, Name: name, Calories: kcal}
}

func kcal(n int) *int { return &n }

func names(ms []catalog.Meal) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func TestRecommend_GenericWithoutTarget(t *testing.T) {
	var catalogByPrice []catalog.Meal
	for i := 0; i < 8; i++ {
		catalogByPrice = append(catalogByPrice, meal(fmt.Sprintf("m%d", i), kcal(100*i)))
	}

	rec := Recommend(nil, catalogByPrice)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, names(rec.Recommendations))
	assert.Equal(t, NoteGeneric, rec.Note)

	rec = Recommend(&Profile{UserID: "u"}, catalogByPrice)
	assert.Equal(t, NoteGeneric, rec.Note)
	assert.Len(t, rec.Recommendations, 5)
}

func TestRecommend_ClosestToThirtyPercent(t *testing.T) {
	// target 2000 kcal -> 600 per meal
	meals := []catalog.Meal{
		meal("cheap", kcal(200)), // 400
		meal("nil", nil),         // 600
		meal("a", kcal(650)),     // 50
		meal("b", kcal(550)),     // 50, after a
		meal("c", kcal(600)),     // 0
		meal("d", kcal(900)),     // 300
		meal("e", kcal(1500)),    // 900
	}
	rec := Recommend(&Profile{CaloriesPerDay: kcal(2000)}, meals)
	assert.Equal(t, []string{"c", "a", "b", "d", "cheap"}, names(rec.Recommendations))
	assert.Equal(t, NoteTargeted, rec.Note)
}

func TestRecommend_SmallCatalog(t *testing.T) {
	meals := []catalog.Meal{meal("x", kcal(300)), meal("y", kcal(700))}
	assert.Len(t, Recommend(&Profile{CaloriesPerDay: kcal(1000)}, meals).Recommendations, 2)
	assert.Empty(t, Recommend(nil, nil).Recommendations)
}

func TestRecommend_DoesNotReorderInput(t *testing.T) {
	meals := []catalog.Meal{meal("far", kcal(5000)), meal("near", kcal(300))}
	_ = Recommend(&Profile{CaloriesPerDay: kcal(1000)}, meals)
	assert.Equal(t, "far", meals[0].Name)
}
