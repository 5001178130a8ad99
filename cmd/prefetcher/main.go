package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "prefetcher",
	Short: "Relation prefetch planner for shape-driven serialization",
	Long: `prefetcher walks a shape tree declared in HCL, derives which relation
paths to eager-join and which to batch-fetch, and can execute the plan
against a SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "prefetcher.hcl",
		"Path to the model and shape configuration")
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
