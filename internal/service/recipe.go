package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crumbworks/mealforge/internal/model"
)

// ErrRecipeNotFound is returned when a recipe lookup misses.
var ErrRecipeNotFound = errors.New("recipe not found")

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// RecipeService owns recipe persistence: saving generation results, the
// search/filter query, ratings and aggregate stats.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// ListFilter carries the query parameters for ListRecipes.
type ListFilter struct {
	Query      string
	MealType   string
	Difficulty string
	MinQuality float64
	Limit      int
}

// Stats summarizes the stored recipe corpus.
type Stats struct {
	TotalRecipes        int64           `json:"total_recipes"`
	AverageQualityScore float64         `json:"average_quality_score"`
	PopularMealTypes    []MealTypeCount `json:"popular_meal_types"`
}

type MealTypeCount struct {
	MealType string `json:"meal_type"`
	Count    int64  `json:"count"`
}

// SaveResult persists a completed generation and its log entry, returning the
// stored recipe.
func (s *RecipeService) SaveResult(ctx context.Context, request, complexity string, result *GenerationResult) (*model.Recipe, error) {
	recipe := model.Recipe{
		ID:              uuid.New(),
		Title:           result.Recipe.Title,
		Description:     result.Recipe.Description,
		OriginalRequest: request,
		PrepTime:        result.Recipe.PrepTime,
		CookTime:        result.Recipe.CookTime,
		TotalTime:       result.Recipe.TotalTime,
		Servings:        result.Recipe.Servings.Value,
		Difficulty:      result.Recipe.Difficulty,
		Complexity:      complexity,
		CuisineType:     result.Recipe.CuisineType,
		MealType:        result.Recipe.MealType,
		Ingredients:     model.JSONBStringArray(result.Recipe.Ingredients),
		Instructions:    model.JSONBStringArray(result.Recipe.Instructions),
		Tags:            model.JSONBStringArray(result.Recipe.Tags),
		ChefNotes:       model.JSONBStringArray(result.Recipe.ChefNotes),
		Enhancements:    model.JSONBStringArray(result.Enhancements),
		IterationsCount: result.Iterations,
		GenerationTime:  result.GenerationTime,
		Embedding:       GenerateEmbedding(result.Recipe.Title + " " + result.Recipe.Description),
	}

	if result.Quality != nil {
		recipe.QualityScore = result.Quality.Score
		recipe.QualityLevel = result.Quality.QualityLevel
	}
	if result.Nutrition != nil {
		recipe.NutritionScore = result.Nutrition.NutritionScore
		recipe.DietaryTags = model.JSONBStringArray(result.Nutrition.DietaryTags)
		recipe.NutritionData = model.JSONBMap{
			"calories": result.Nutrition.Calories,
			"protein":  result.Nutrition.Protein,
			"carbs":    result.Nutrition.Carbs,
			"fat":      result.Nutrition.Fat,
			"fiber":    result.Nutrition.Fiber,
		}
	}

	if err := s.db.WithContext(ctx).Create(&recipe).Error; err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	logEntry := model.GenerationLog{
		ID:              uuid.New(),
		RecipeID:        &recipe.ID,
		OriginalRequest: request,
		Success:         true,
		GenerationTime:  result.GenerationTime,
	}
	if err := s.db.WithContext(ctx).Create(&logEntry).Error; err != nil {
		return nil, fmt.Errorf("failed to save generation log: %w", err)
	}

	return &recipe, nil
}

// LogFailure records a failed generation attempt.
func (s *RecipeService) LogFailure(ctx context.Context, request, errMsg string, generationTime int) error {
	logEntry := model.GenerationLog{
		ID:              uuid.New(),
		OriginalRequest: request,
		Success:         false,
		ErrorMessage:    errMsg,
		GenerationTime:  generationTime,
	}
	return s.db.WithContext(ctx).Create(&logEntry).Error
}

// ListRecipes returns recent recipes matching the filter, newest first. On
// postgres a free-text query orders by embedding distance; sqlite falls back
// to LIKE matching.
func (s *RecipeService) ListRecipes(ctx context.Context, filter ListFilter) ([]model.Recipe, error) {
	query := s.db.WithContext(ctx)

	if filter.Query != "" {
		if s.db.Dialector.Name() == "postgres" {
			vec := GenerateEmbedding(filter.Query)
			query = query.Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{vec}},
			})
		} else {
			like := "%" + strings.ToLower(filter.Query) + "%"
			query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}
	} else {
		query = query.Order("created_at DESC")
	}

	if filter.MealType != "" {
		query = query.Where("meal_type = ?", filter.MealType)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.MinQuality > 0 {
		query = query.Where("quality_score >= ?", filter.MinQuality)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var recipes []model.Recipe
	if err := query.Limit(limit).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe returns one recipe and increments its view count.
func (s *RecipeService) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to fetch recipe: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&recipe).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
		return nil, fmt.Errorf("failed to update view count: %w", err)
	}
	recipe.ViewsCount++

	return &recipe, nil
}

// RateRecipe stores a 1-5 rating for a recipe.
func (s *RecipeService) RateRecipe(ctx context.Context, id, userIP string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	recipeID, err := uuid.Parse(id)
	if err != nil {
		return ErrRecipeNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check recipe: %w", err)
	}
	if count == 0 {
		return ErrRecipeNotFound
	}

	entry := model.RecipeRating{
		ID:       uuid.New(),
		RecipeID: recipeID,
		UserIP:   userIP,
		Rating:   rating,
		Comment:  comment,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

// GetStats aggregates recipe counts, average quality and popular meal types.
func (s *RecipeService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).Count(&stats.TotalRecipes).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	var avg *float64
	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Where("quality_score > 0").
		Select("AVG(quality_score)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to average quality: %w", err)
	}
	if avg != nil {
		stats.AverageQualityScore = math.Round(*avg*10) / 10
	}

	rows := []MealTypeCount{}
	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Select("meal_type, COUNT(*) as count").
		Where("meal_type <> ''").
		Group("meal_type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count meal types: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	stats.PopularMealTypes = rows

	return stats, nil
}
