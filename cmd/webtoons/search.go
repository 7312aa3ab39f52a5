package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/webtoons/pkg/data"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search your collection",
	Long:  "Search tracked series by title, author, genre, or chapter count",
	Run: func(cmd *cobra.Command, args []string) {
		author, _ := cmd.Flags().GetString("author")
		genre, _ := cmd.Flags().GetString("genre")
		minChapters, _ := cmd.Flags().GetInt("min-chapters")

		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		filter := data.SearchFilter{
			Title:       strings.Join(args, " "),
			Author:      author,
			Genre:       genre,
			MinChapters: minChapters,
		}
		results, err := controller.Search(filter)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("search failed: %w", err))
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return
		}

		var (
			green = lipgloss.Color("35")

			headerStyle = lipgloss.NewStyle().Foreground(green).Bold(true).Align(lipgloss.Center)
			cellStyle   = lipgloss.NewStyle().Padding(0, 1)
		)

		t := table.New().
			Border(lipgloss.HiddenBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(green)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				default:
					return cellStyle
				}
			}).
			Headers("#", "Title", "Author", "Genre", "Chapters")

		for i, series := range results {
			t.Row(
				fmt.Sprintf("%d", i+1),
				truncateString(series.Title, 40),
				series.Author,
				series.Genre,
				fmt.Sprintf("%d", series.NumChapters),
			)
		}

		fmt.Println(t)
	},
}

func init() {
	searchCmd.Flags().StringP("author", "a", "", "Filter by author")
	searchCmd.Flags().StringP("genre", "g", "", "Filter by genre")
	searchCmd.Flags().Int("min-chapters", 0, "Only series with at least this many chapters")

	rootCmd.AddCommand(searchCmd)
}
