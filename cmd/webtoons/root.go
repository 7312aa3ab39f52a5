package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webtoons",
	Short: "A webtoon downloader and collection manager",
	Long:  "Download webtoon chapters with resumable queues, archive reader comments, and export your collection to EPUB",
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// truncateString shortens long titles for table cells.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
