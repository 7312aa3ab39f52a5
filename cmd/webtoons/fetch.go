package cmd

import (
	"fmt"

	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [series-url]",
	Short: "Fetch a series and its chapter index",
	Long:  "Scrape a series list page and store the metadata and chapter index without downloading images",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		fmt.Printf("🔍 Fetching %s...\n", args[0])
		series, chapters, err := controller.FetchSeries(cmd.Context(), args[0])
		if err != nil {
			cobra.CheckErr(fmt.Errorf("fetch failed: %w", err))
		}

		fmt.Printf("✅ %s by %s\n", series.Title, series.Author)
		if series.Genre != "" {
			fmt.Printf("   Genre: %s", series.Genre)
			if series.Grade > 0 {
				fmt.Printf("  Grade: %.2f", series.Grade)
			}
			fmt.Println()
		}
		fmt.Printf("   %d chapters indexed\n", len(chapters))
		fmt.Printf("💡 To download, use: webtoons download %s\n", series.TitleNo)
	},
}
