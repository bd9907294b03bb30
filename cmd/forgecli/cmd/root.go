package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "forgecli",
	Short: "Command-line client for the MealForge recipe generator",
	Long: `forgecli talks to a running MealForge API server.

It submits recipe generation requests, follows their progress until a
recipe is ready, and browses the recipes the server has saved.

The server address defaults to http://localhost:8080 and can be set with
--server or the MEALFORGE_SERVER environment variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// SetVersion records the build version on the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "MealForge server base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func serverURL(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		return s
	}
	if s := os.Getenv("MEALFORGE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
