package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/config"
)

// RecipeData represents the structure of a recipe as returned by the LLM
type RecipeData struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	PrepTime     string       `json:"prep_time"`
	CookTime     string       `json:"cook_time"`
	TotalTime    string       `json:"total_time"`
	Servings     ServingsType `json:"servings"`
	Difficulty   string       `json:"difficulty"`
	Ingredients  []string     `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tags         []string     `json:"tags"`
	CuisineType  string       `json:"cuisine_type"`
	MealType     string       `json:"meal_type"`
	ChefNotes    []string     `json:"chef_notes"`
}

// Nutrition represents the nutrition estimate for a recipe
type Nutrition struct {
	Calories       float64  `json:"calories"`
	Protein        float64  `json:"protein"`
	Carbs          float64  `json:"carbs"`
	Fat            float64  `json:"fat"`
	Fiber          float64  `json:"fiber"`
	DietaryTags    []string `json:"dietary_tags"`
	NutritionScore float64  `json:"nutrition_score"`
}

// Quality represents the quality evaluation of a recipe
type Quality struct {
	Score        float64 `json:"score"`
	QualityLevel string  `json:"quality_level"`
	Verdict      string  `json:"verdict"`
}

// LLMService handles interactions with the chat-completions API
type LLMService struct {
	apiKey string
	apiURL string
	client *http.Client
	logger *zap.Logger
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg *config.Config, logger *zap.Logger) (*LLMService, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY or LLM_API_KEY_FILE must be set")
	}

	return &LLMService{
		apiKey: cfg.LLMAPIKey,
		apiURL: cfg.LLMAPIURL,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: logger,
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a request to the chat-completions API
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature,omitempty"`
	TopP           float64           `json:"top_p,omitempty"`
}

// ServingsType can handle both string and number values for servings
type ServingsType struct {
	Value string
}

func (s *ServingsType) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		s.Value = fmt.Sprintf("%d", int(num))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Value = str
		return nil
	}

	return fmt.Errorf("invalid servings format")
}

func (s ServingsType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

const recipeSystemPrompt = `You are a professional chef. Create a well-structured, practical recipe for the user's request. Return your response in this EXACT JSON format:
{
    "title": "Recipe Name",
    "description": "Brief description of the dish",
    "prep_time": "X minutes",
    "cook_time": "X minutes",
    "total_time": "X minutes",
    "servings": "X",
    "difficulty": "Easy/Medium/Hard",
    "ingredients": [
        "ingredient 1 with measurements",
        "ingredient 2 with measurements"
    ],
    "instructions": [
        "Step 1 instruction",
        "Step 2 instruction"
    ],
    "tags": ["tag1", "tag2", "tag3"],
    "cuisine_type": "cuisine name",
    "meal_type": "breakfast/lunch/dinner/snack/dessert",
    "chef_notes": ["optional note"]
}

Make sure the JSON is valid and complete. Include realistic measurements and clear instructions.`

// GenerateRecipe generates a structured recipe for a free-text request.
// Complexity is one of Simple, Medium, Gourmet and shapes how elaborate the
// recipe should be.
func (s *LLMService) GenerateRecipe(ctx context.Context, request, complexity string) (*RecipeData, error) {
	prompt := fmt.Sprintf("Create a recipe based on this request: %q", request)
	switch complexity {
	case "Simple":
		prompt += "\nKeep it simple: few ingredients, minimal technique, under 30 minutes if possible."
	case "Gourmet":
		prompt += "\nMake it gourmet: refined techniques, plating notes, restaurant-quality result."
	default:
		prompt += "\nAim for a balanced home-cook level of effort."
	}

	content, err := s.chat(ctx, recipeSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var recipe RecipeData
	if err := json.Unmarshal(extractJSON(content), &recipe); err != nil {
		s.logger.Warn("failed to parse recipe JSON", zap.Error(err))
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}

	applyRecipeDefaults(&recipe, request)
	return &recipe, nil
}

const enhanceSystemPrompt = `You are a professional chef refining a colleague's recipe. Keep the core concept and structure, make meaningful practical improvements (flavor boosting, texture contrast, technique upgrades, presentation), and do not overcomplicate it. Return the full enhanced recipe in the same JSON format it was given in, with one extra field "enhancements_made": a list of the specific improvements you applied. Make sure the JSON is valid and complete.`

// EnhanceRecipe runs one improvement pass over a generated recipe and returns
// the enhanced version with the list of changes made. The input recipe is not
// modified; callers keep it when enhancement fails.
func (s *LLMService) EnhanceRecipe(ctx context.Context, recipe *RecipeData, complexity string) (*RecipeData, []string, error) {
	encoded, err := json.Marshal(recipe)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode recipe: %w", err)
	}
	prompt := fmt.Sprintf("Requested complexity: %s\nCurrent recipe:\n%s", complexity, string(encoded))

	content, err := s.chat(ctx, enhanceSystemPrompt, prompt)
	if err != nil {
		return nil, nil, err
	}

	var enhanced struct {
		RecipeData
		EnhancementsMade []string `json:"enhancements_made"`
	}
	if err := json.Unmarshal(extractJSON(content), &enhanced); err != nil {
		return nil, nil, fmt.Errorf("failed to parse enhanced recipe: %w", err)
	}

	// An enhancement pass must never lose the dish.
	if enhanced.Title == "" || len(enhanced.Ingredients) == 0 || len(enhanced.Instructions) == 0 {
		return nil, nil, fmt.Errorf("enhanced recipe is incomplete")
	}

	result := enhanced.RecipeData
	applyRecipeDefaults(&result, recipe.Title)
	return &result, enhanced.EnhancementsMade, nil
}

// EstimateNutrition estimates per-serving macros and dietary tags for a set of
// ingredients. Errors are expected to be absorbed by callers: nutrition is an
// optional enrichment, not part of the generation contract.
func (s *LLMService) EstimateNutrition(ctx context.Context, ingredients []string, servings string) (*Nutrition, error) {
	system := `You are a nutrition expert. Respond only with JSON like {"calories":0,"protein":0,"carbs":0,"fat":0,"fiber":0,"dietary_tags":["vegetarian"],"nutrition_score":7.5}. Values are per serving; nutrition_score is 0-10.`
	prompt := fmt.Sprintf("Estimate per-serving nutrition for a recipe serving %s, with these ingredients:\n%s",
		servings, strings.Join(ingredients, "\n"))

	content, err := s.chat(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	var nutrition Nutrition
	if err := json.Unmarshal(extractJSON(content), &nutrition); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition: %w", err)
	}

	return &nutrition, nil
}

// ScoreQuality evaluates a generated recipe and returns an overall score with
// a coarse quality level.
func (s *LLMService) ScoreQuality(ctx context.Context, recipe *RecipeData, complexity string) (*Quality, error) {
	system := `You are a culinary quality evaluator. Score the recipe 0-10 for creativity, practicality, completeness and alignment with the requested complexity, then respond only with JSON like {"score":8.2,"quality_level":"Excellent","verdict":"short explanation"}. quality_level is one of Poor, Acceptable, Good, Excellent.`

	encoded, err := json.Marshal(recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipe: %w", err)
	}
	prompt := fmt.Sprintf("Requested complexity: %s\nRecipe:\n%s", complexity, string(encoded))

	content, err := s.chat(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	var quality Quality
	if err := json.Unmarshal(extractJSON(content), &quality); err != nil {
		return nil, fmt.Errorf("failed to parse quality evaluation: %w", err)
	}

	return &quality, nil
}

// chat performs one chat-completions round trip and returns the raw content
// of the first choice.
func (s *LLMService) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := Request{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.9,
		TopP:           0.9,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Choices[0].Message.Content, nil
}

// extractJSON pulls the JSON object out of an LLM response that may be
// wrapped in markdown fences or surrounding prose.
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	return []byte(content)
}

// applyRecipeDefaults fills required fields the model left out so the result
// is always renderable.
func applyRecipeDefaults(recipe *RecipeData, request string) {
	if recipe.Title == "" {
		recipe.Title = "Recipe for " + request
	}
	if recipe.Description == "" {
		recipe.Description = "A delicious recipe"
	}
	if recipe.Servings.Value == "" {
		recipe.Servings.Value = "4"
	}
	if recipe.Difficulty == "" {
		recipe.Difficulty = "Medium"
	}
	if recipe.CuisineType == "" {
		recipe.CuisineType = "Unknown"
	}
	if recipe.MealType == "" {
		recipe.MealType = "dinner"
	}
	if recipe.Ingredients == nil {
		recipe.Ingredients = []string{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
}
