package nutrition_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/memstore"
	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func TestUpsert_IdempotentLatestWins(t *testing.T) {
	store := memstore.New()
	svc := &nutrition.Service{Profiles: store, Meals: store}
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "user_1", nutrition.ProfileInput{
		Goal: ptr("cut"), CaloriesPerDay: ptr(1800), IsVegetarian: ptr(true), Allergies: ptr("peanuts"),
	})
	require.NoError(t, err)
	p, err := svc.Upsert(ctx, "user_1", nutrition.ProfileInput{CaloriesPerDay: ptr(2200), NoPork: ptr(true)})
	require.NoError(t, err)

	_, _, _, profiles := store.Counts()
	assert.Equal(t, 1, profiles)
	assert.Equal(t, 2200, *p.CaloriesPerDay)
	assert.Equal(t, "cut", *p.Goal, "omitted goal keeps the stored value")
	assert.Equal(t, "peanuts", *p.Allergies)
	assert.False(t, p.IsVegetarian, "omitted flags reset to false")
	assert.True(t, p.NoPork)
}

func TestUpsert_Validation(t *testing.T) {
	store := memstore.New()
	svc := &nutrition.Service{Profiles: store, Meals: store}

	_, err := svc.Upsert(context.Background(), "", nutrition.ProfileInput{})
	assert.ErrorIs(t, err, nutrition.ErrInvalid)
	_, err = svc.Upsert(context.Background(), "user_1", nutrition.ProfileInput{CaloriesPerDay: ptr(0)})
	assert.ErrorIs(t, err, nutrition.ErrInvalid)
}

func TestGetDelete_NotFound(t *testing.T) {
	store := memstore.New()
	svc := &nutrition.Service{Profiles: store, Meals: store}
	ctx := context.Background()

	_, err := svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, nutrition.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "ghost"), nutrition.ErrNotFound)

	_, err = svc.Upsert(ctx, "ghost", nutrition.ProfileInput{})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "ghost"))
	_, err = svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, nutrition.ErrNotFound)
}

func TestService_Recommend(t *testing.T) {
	store := memstore.New()
	meals := &catalog.Service{Store: store, Log: zap.NewNop()}
	svc := &nutrition.Service{Profiles: store, Meals: store}
	ctx := context.Background()

	for i, c := range []int64{900, 300, 700, 100, 500, 1100} {
		_, err := meals.Create(ctx, catalog.NewMeal{Name: string(rune('a' + i)), Price: ptr(money.Money(c)), Calories: ptr(200 * (i + 1))})
		require.NoError(t, err)
	}

	rec, err := svc.Recommend(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, rec.Recommendations, 5)
	assert.Equal(t, nutrition.NoteGeneric, rec.Note)
	assert.Equal(t, money.Money(100), *rec.Recommendations[0].Price)
	assert.Equal(t, money.Money(900), *rec.Recommendations[4].Price)

	_, err = svc.Upsert(ctx, "user_1", nutrition.ProfileInput{CaloriesPerDay: ptr(2000)})
	require.NoError(t, err)
	rec, err = svc.Recommend(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, nutrition.NoteTargeted, rec.Note)
	assert.Equal(t, 600, *rec.Recommendations[0].Calories)

	_, err = svc.Recommend(ctx, "")
	assert.ErrorIs(t, err, nutrition.ErrInvalid)
}
