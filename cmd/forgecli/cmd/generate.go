package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crumbworks/mealforge/internal/genclient"
	"github.com/crumbworks/mealforge/internal/service"
)

var generateCmd = &cobra.Command{
	Use:   "generate <request>",
	Short: "Generate a recipe from a freeform request",
	Long: `Generate submits a recipe request to the server and waits for the result.

By default the request runs through the server's generation queue and
forgecli polls until the recipe is ready, printing progress as it goes.
With --sync the server generates in a single blocking call instead.

Examples:
  forgecli generate "a weeknight pasta with whatever is in the pantry"
  forgecli generate "sourdough pizza from scratch" --complexity Gourmet
  forgecli generate "quick miso soup" --sync --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.StringP("complexity", "x", "Medium", "Recipe complexity: Simple, Medium or Gourmet")
	f.Bool("sync", false, "Generate synchronously instead of through the queue")
	f.Bool("json", false, "Print the raw result as JSON")
	f.String("analytics", "", "Analytics collector URL (default $ANALYTICS_URL)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(args[0])
	complexity, _ := cmd.Flags().GetString("complexity")
	sync, _ := cmd.Flags().GetBool("sync")
	jsonOut, _ := cmd.Flags().GetBool("json")

	logger := newLogger(cmd)
	defer logger.Sync()

	analyticsURL, _ := cmd.Flags().GetString("analytics")
	if analyticsURL == "" {
		analyticsURL = os.Getenv("ANALYTICS_URL")
	}
	var analytics genclient.Analytics = genclient.NopAnalytics{}
	if analyticsURL != "" {
		analytics = genclient.NewHTTPAnalytics(analyticsURL, logger)
	}

	client := genclient.NewClient(serverURL(cmd))

	opts := genclient.DefaultPollerOptions()
	if !jsonOut {
		opts.Progress = func(message string) {
			fmt.Fprintf(os.Stderr, "  %s\n", message)
		}
	}
	poller := genclient.NewPoller(client, analytics, logger, opts)
	submitter := genclient.NewSubmitter(client, poller, analytics, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := genclient.GenerationRequest{
		RecipeRequest: request,
		Complexity:    genclient.Complexity(complexity),
	}

	var result *genclient.Result
	var err error
	if sync {
		result, err = submitOnce(ctx, client, req)
	} else {
		result, err = submitter.Run(ctx, req)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(result)
}

// submitOnce is the --sync path: a single blocking request without queue,
// polling or fallback.
func submitOnce(ctx context.Context, client *genclient.Client, req genclient.GenerationRequest) (*genclient.Result, error) {
	resp, err := client.Generate(ctx, req, false)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("generation failed: %s", resp.Error)
		}
		return nil, fmt.Errorf("generation failed")
	}
	return resp.ToResult(), nil
}

func printResult(result *genclient.Result) error {
	var recipe service.RecipeData
	if err := json.Unmarshal(result.Recipe, &recipe); err != nil {
		return fmt.Errorf("server returned an unreadable recipe: %w", err)
	}

	fmt.Printf("\n%s\n%s\n\n", recipe.Title, strings.Repeat("=", len(recipe.Title)))
	if recipe.Description != "" {
		fmt.Printf("%s\n\n", recipe.Description)
	}
	fmt.Printf("Prep: %s | Cook: %s | Total: %s | Serves: %s | %s\n\n",
		recipe.PrepTime, recipe.CookTime, recipe.TotalTime, recipe.Servings.Value, recipe.Difficulty)

	fmt.Println("Ingredients:")
	for _, ing := range recipe.Ingredients {
		fmt.Printf("  - %s\n", ing)
	}

	fmt.Println("\nInstructions:")
	for i, step := range recipe.Instructions {
		fmt.Printf("  %d. %s\n", i+1, step)
	}

	if len(recipe.ChefNotes) > 0 {
		fmt.Println("\nChef notes:")
		for _, note := range recipe.ChefNotes {
			fmt.Printf("  - %s\n", note)
		}
	}

	if len(result.Enhancements) > 0 {
		fmt.Println("\nEnhancements:")
		for _, e := range result.Enhancements {
			fmt.Printf("  - %s\n", e)
		}
	}

	if len(result.Nutrition) > 0 {
		var n service.Nutrition
		if err := json.Unmarshal(result.Nutrition, &n); err == nil {
			fmt.Printf("\nNutrition (per serving): %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat\n",
				n.Calories, n.Protein, n.Carbs, n.Fat)
		}
	}
	if len(result.Quality) > 0 {
		var q service.Quality
		if err := json.Unmarshal(result.Quality, &q); err == nil && q.Score > 0 {
			fmt.Printf("Quality: %.1f/10 (%s)\n", q.Score, q.QualityLevel)
		}
	}

	fmt.Printf("\nGenerated in %.1fs\n", result.GenerationTime)
	return nil
}
