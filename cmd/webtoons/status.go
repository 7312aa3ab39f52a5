package cmd

import (
	"fmt"
	"strings"

	"github.com/kerbaras/webtoons/pkg/app/styles"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [title-no]",
	Short: "Show download status for a series, or collection totals",
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		if len(args) == 0 {
			stats, err := controller.Stats()
			if err != nil {
				cobra.CheckErr(err)
			}
			fmt.Printf("📚 %d series, %d chapters (%d downloaded)\n",
				stats.SeriesCount, stats.ChapterCount, stats.DownloadedCount)
			if stats.SeriesCount > 0 {
				fmt.Printf("   %d genres, average grade %.2f\n", stats.DistinctGenres, stats.AverageGrade)
			}
			return
		}

		status, err := controller.Status(args[0])
		if err != nil {
			cobra.CheckErr(err)
		}

		var b strings.Builder
		b.WriteString(styles.TitleStyle.Render(status.Series.Title))
		b.WriteString("\n")
		if status.Series.Author != "" {
			b.WriteString(styles.SubtitleStyle.Render("by " + status.Series.Author))
			b.WriteString("\n")
		}
		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("%d/%d chapters downloaded", status.Downloaded, status.Chapters)))
		b.WriteString("\n")
		b.WriteString(styles.StatusStyle(status.Series.Status).Render(status.Series.Status))
		b.WriteString("\n")

		fmt.Println(styles.CardStyle.Render(b.String()))

		if status.Resumable {
			fmt.Printf("💡 An interrupted download can be continued: webtoons resume %s\n", status.Series.TitleNo)
		}
	},
}
