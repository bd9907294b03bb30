package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumbworks/mealforge/internal/model"
	"github.com/crumbworks/mealforge/internal/testhelpers"
)

func sampleResult(title, mealType string, score float64) *GenerationResult {
	return &GenerationResult{
		Recipe: &RecipeData{
			Title:        title,
			Description:  "a test recipe",
			PrepTime:     "10 minutes",
			CookTime:     "20 minutes",
			TotalTime:    "30 minutes",
			Servings:     ServingsType{Value: "4"},
			Difficulty:   "Easy",
			Ingredients:  []string{"ingredient one", "ingredient two"},
			Instructions: []string{"step one", "step two"},
			Tags:         []string{"test"},
			CuisineType:  "Italian",
			MealType:     mealType,
		},
		Enhancements: []string{"Added fresh herbs"},
		Nutrition: &Nutrition{
			Calories:       400,
			Protein:        15,
			DietaryTags:    []string{"vegetarian"},
			NutritionScore: 7,
		},
		Quality: &Quality{
			Score:        score,
			QualityLevel: "Good",
		},
		GenerationTime: 12,
		Iterations:     1,
	}
}

func TestSaveResultPersistsRecipeAndLog(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	recipe, err := svc.SaveResult(ctx, "weeknight pasta", "Medium", sampleResult("Pasta", "dinner", 8.0))
	require.NoError(t, err)

	assert.Equal(t, "Pasta", recipe.Title)
	assert.Equal(t, "weeknight pasta", recipe.OriginalRequest)
	assert.Equal(t, "Medium", recipe.Complexity)
	assert.Equal(t, 8.0, recipe.QualityScore)
	assert.Equal(t, []string{"vegetarian"}, []string(recipe.DietaryTags))
	assert.Equal(t, []string{"Added fresh herbs"}, []string(recipe.Enhancements))
	assert.Equal(t, 400.0, recipe.NutritionData["calories"])

	var logs []model.GenerationLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	require.NotNil(t, logs[0].RecipeID)
	assert.Equal(t, recipe.ID, *logs[0].RecipeID)
}

func TestLogFailure(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)

	require.NoError(t, svc.LogFailure(context.Background(), "impossible dish", "model unavailable", 5))

	var logs []model.GenerationLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "model unavailable", logs[0].ErrorMessage)
	assert.Nil(t, logs[0].RecipeID)
}

func TestListRecipesFilters(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	_, err := svc.SaveResult(ctx, "r1", "Simple", sampleResult("Pancakes", "breakfast", 6.0))
	require.NoError(t, err)
	_, err = svc.SaveResult(ctx, "r2", "Medium", sampleResult("Lasagna", "dinner", 9.0))
	require.NoError(t, err)
	_, err = svc.SaveResult(ctx, "r3", "Medium", sampleResult("Risotto", "dinner", 7.0))
	require.NoError(t, err)

	all, err := svc.ListRecipes(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dinners, err := svc.ListRecipes(ctx, ListFilter{MealType: "dinner"})
	require.NoError(t, err)
	assert.Len(t, dinners, 2)

	good, err := svc.ListRecipes(ctx, ListFilter{MinQuality: 8.5})
	require.NoError(t, err)
	require.Len(t, good, 1)
	assert.Equal(t, "Lasagna", good[0].Title)

	matched, err := svc.ListRecipes(ctx, ListFilter{Query: "pancake"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Pancakes", matched[0].Title)

	limited, err := svc.ListRecipes(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetRecipeIncrementsViews(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	saved, err := svc.SaveResult(ctx, "r1", "Medium", sampleResult("Pasta", "dinner", 8.0))
	require.NoError(t, err)

	got, err := svc.GetRecipe(ctx, saved.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewsCount)

	got, err = svc.GetRecipe(ctx, saved.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewsCount)
}

func TestGetRecipeNotFound(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)

	_, err := svc.GetRecipe(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestRateRecipe(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	saved, err := svc.SaveResult(ctx, "r1", "Medium", sampleResult("Pasta", "dinner", 8.0))
	require.NoError(t, err)

	require.NoError(t, svc.RateRecipe(ctx, saved.ID.String(), "10.0.0.1", 5, "great"))

	var ratings []model.RecipeRating
	require.NoError(t, db.Find(&ratings).Error)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Rating)
	assert.Equal(t, "10.0.0.1", ratings[0].UserIP)

	assert.ErrorIs(t, svc.RateRecipe(ctx, saved.ID.String(), "10.0.0.1", 0, ""), ErrInvalidRating)
	assert.ErrorIs(t, svc.RateRecipe(ctx, saved.ID.String(), "10.0.0.1", 6, ""), ErrInvalidRating)
	assert.ErrorIs(t, svc.RateRecipe(ctx, "not-a-uuid", "10.0.0.1", 3, ""), ErrRecipeNotFound)
}

func TestGetStats(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	_, err := svc.SaveResult(ctx, "r1", "Simple", sampleResult("Pancakes", "breakfast", 6.0))
	require.NoError(t, err)
	_, err = svc.SaveResult(ctx, "r2", "Medium", sampleResult("Lasagna", "dinner", 9.0))
	require.NoError(t, err)
	_, err = svc.SaveResult(ctx, "r3", "Medium", sampleResult("Risotto", "dinner", 7.0))
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalRecipes)
	assert.InDelta(t, 7.3, stats.AverageQualityScore, 0.01)
	require.Len(t, stats.PopularMealTypes, 2)
	assert.Equal(t, "dinner", stats.PopularMealTypes[0].MealType)
	assert.Equal(t, int64(2), stats.PopularMealTypes[0].Count)
}

func TestGetStatsRoundsAverageQuality(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	_, err := svc.SaveResult(ctx, "r1", "Simple", sampleResult("Pancakes", "breakfast", 6.0))
	require.NoError(t, err)
	_, err = svc.SaveResult(ctx, "r2", "Medium", sampleResult("Lasagna", "dinner", 8.72))
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)

	// Average is 7.36, which rounds up to 7.4 rather than truncating to 7.3.
	assert.InDelta(t, 7.4, stats.AverageQualityScore, 0.001)
}

func TestGenerateEmbeddingDeterministic(t *testing.T) {
	a := GenerateEmbedding("spicy noodles")
	b := GenerateEmbedding("spicy noodles")
	assert.Equal(t, a, b)
}

func TestGenerateEmbeddingComponents(t *testing.T) {
	// "spicy noodles": 13 runes, 2 words, 4 vowels in 12 letters.
	vec := GenerateEmbedding("  Spicy Noodles ").Slice()
	require.Len(t, vec, 3)
	assert.Equal(t, float32(13), vec[0])
	assert.Equal(t, float32(2), vec[1])
	assert.InDelta(t, float32(4)/float32(12), vec[2], 0.0001)

	empty := GenerateEmbedding("").Slice()
	assert.Equal(t, []float32{0, 0, 0}, empty)
}
