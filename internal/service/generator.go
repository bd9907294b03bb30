package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GenerationResult is the payload handed to presentation clients for both the
// synchronous path and completed async tasks.
type GenerationResult struct {
	Recipe         *RecipeData `json:"recipe"`
	Enhancements   []string    `json:"enhancements,omitempty"`
	Nutrition      *Nutrition  `json:"nutrition,omitempty"`
	Quality        *Quality    `json:"quality,omitempty"`
	GenerationTime int         `json:"generation_time"`
	Iterations     int         `json:"iterations"`
}

// ProgressFunc receives step updates while a generation pipeline runs.
type ProgressFunc func(step, message string)

// RecipeGenerator runs the full generation pipeline: base recipe, an
// enhancement pass, then nutrition estimation and quality scoring. Everything
// after the base recipe is a best-effort enrichment.
type RecipeGenerator struct {
	llm    *LLMService
	logger *zap.Logger
}

func NewRecipeGenerator(llm *LLMService, logger *zap.Logger) *RecipeGenerator {
	return &RecipeGenerator{llm: llm, logger: logger}
}

// Generate produces a complete GenerationResult for a request. Nutrition and
// quality failures are logged and dropped; only the base recipe is required.
func (g *RecipeGenerator) Generate(ctx context.Context, request, complexity string, progress ProgressFunc) (*GenerationResult, error) {
	if progress == nil {
		progress = func(string, string) {}
	}
	start := time.Now()

	progress("generating", "Creating base recipe...")
	recipe, err := g.llm.GenerateRecipe(ctx, request, complexity)
	if err != nil {
		return nil, err
	}
	iterations := 1

	progress("enhancing", "Adding creative improvements...")
	var enhancements []string
	if enhanced, made, err := g.llm.EnhanceRecipe(ctx, recipe, complexity); err != nil {
		g.logger.Warn("recipe enhancement failed, keeping base recipe", zap.Error(err))
	} else {
		recipe = enhanced
		enhancements = made
		iterations++
	}

	progress("analyzing", "Analyzing nutrition & quality...")

	// Nutrition and quality are independent LLM calls; run them concurrently
	// the way the pipeline always has.
	type nutritionOut struct {
		nutrition *Nutrition
		err       error
	}
	type qualityOut struct {
		quality *Quality
		err     error
	}

	nutritionCh := make(chan nutritionOut, 1)
	qualityCh := make(chan qualityOut, 1)

	go func() {
		n, err := g.llm.EstimateNutrition(ctx, recipe.Ingredients, recipe.Servings.Value)
		nutritionCh <- nutritionOut{n, err}
	}()
	go func() {
		q, err := g.llm.ScoreQuality(ctx, recipe, complexity)
		qualityCh <- qualityOut{q, err}
	}()

	result := &GenerationResult{
		Recipe:       recipe,
		Enhancements: enhancements,
		Iterations:   iterations,
	}

	if n := <-nutritionCh; n.err != nil {
		g.logger.Warn("nutrition estimation failed", zap.Error(n.err))
	} else {
		result.Nutrition = n.nutrition
	}

	if q := <-qualityCh; q.err != nil {
		g.logger.Warn("quality scoring failed", zap.Error(q.err))
	} else {
		result.Quality = q.quality
	}

	result.GenerationTime = int(time.Since(start).Seconds())
	progress("completed", "Recipe generation complete!")
	return result, nil
}
