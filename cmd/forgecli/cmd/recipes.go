package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Browse recipes saved on the server",
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recipes, newest or most relevant first",
	Long: `List recipes the server has generated and saved.

With --query the server ranks recipes by similarity to the search text;
without it, recipes come back newest first.

Examples:
  forgecli recipes list
  forgecli recipes list --query "spicy noodles" --limit 5
  forgecli recipes list --meal-type dinner --min-quality 7`,
	RunE: runRecipesList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate recipe statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(recipesCmd)
	recipesCmd.AddCommand(recipesListCmd)
	rootCmd.AddCommand(statsCmd)

	f := recipesListCmd.Flags()
	f.StringP("query", "q", "", "Rank recipes by similarity to this text")
	f.String("meal-type", "", "Filter by meal type (breakfast, lunch, dinner, ...)")
	f.String("difficulty", "", "Filter by difficulty (Easy, Medium, Hard)")
	f.Float64("min-quality", 0, "Only recipes with at least this quality score")
	f.IntP("limit", "n", 20, "Maximum number of recipes")
	f.Bool("json", false, "Print the raw response as JSON")
}

type recipeSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Difficulty   string  `json:"difficulty"`
	MealType     string  `json:"meal_type"`
	CuisineType  string  `json:"cuisine_type"`
	QualityScore float64 `json:"quality_score"`
	ViewsCount   int     `json:"views_count"`
}

func runRecipesList(cmd *cobra.Command, _ []string) error {
	query, _ := cmd.Flags().GetString("query")
	mealType, _ := cmd.Flags().GetString("meal-type")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	minQuality, _ := cmd.Flags().GetFloat64("min-quality")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if mealType != "" {
		params.Set("meal_type", mealType)
	}
	if difficulty != "" {
		params.Set("difficulty", difficulty)
	}
	if minQuality > 0 {
		params.Set("min_quality", strconv.FormatFloat(minQuality, 'f', -1, 64))
	}
	params.Set("limit", strconv.Itoa(limit))

	body, err := apiGet(cmd, "/api/v1/recipes?"+params.Encode())
	if err != nil {
		return err
	}

	if jsonOut {
		fmt.Println(string(body))
		return nil
	}

	var resp struct {
		Recipes []recipeSummary `json:"recipes"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unexpected response from server: %w", err)
	}

	if resp.Count == 0 {
		fmt.Println("No recipes found.")
		return nil
	}
	for _, r := range resp.Recipes {
		fmt.Printf("%s  %-40s  %-8s  quality %.1f  views %d\n",
			r.ID, truncate(r.Title, 40), r.Difficulty, r.QualityScore, r.ViewsCount)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	body, err := apiGet(cmd, "/api/v1/stats")
	if err != nil {
		return err
	}

	var resp struct {
		Stats struct {
			TotalRecipes        int64   `json:"total_recipes"`
			AverageQualityScore float64 `json:"average_quality_score"`
			PopularMealTypes    []struct {
				MealType string `json:"meal_type"`
				Count    int64  `json:"count"`
			} `json:"popular_meal_types"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unexpected response from server: %w", err)
	}

	fmt.Printf("Recipes: %d\n", resp.Stats.TotalRecipes)
	fmt.Printf("Average quality: %.1f\n", resp.Stats.AverageQualityScore)
	if len(resp.Stats.PopularMealTypes) > 0 {
		fmt.Println("By meal type:")
		for _, mt := range resp.Stats.PopularMealTypes {
			fmt.Printf("  %-12s %d\n", mt.MealType, mt.Count)
		}
	}
	return nil
}

func apiGet(cmd *cobra.Command, path string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(serverURL(cmd) + path)
	if err != nil {
		return nil, fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server error: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
