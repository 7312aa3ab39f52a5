package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all series in your collection",
	Long:  "Display every tracked series in a formatted table",
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		all, err := controller.List()
		if err != nil {
			cobra.CheckErr(err)
		}

		if len(all) == 0 {
			fmt.Println("📚 No series in collection. Use 'webtoons fetch <url>' to add one.")
			return
		}

		columns := []table.Column{
			{Title: "Title", Width: 34},
			{Title: "Author", Width: 18},
			{Title: "Genre", Width: 12},
			{Title: "Status", Width: 12},
			{Title: "Chapters", Width: 10},
			{Title: "Downloaded", Width: 12},
		}

		rows := []table.Row{}
		for _, series := range all {
			total, downloaded := series.NumChapters, 0
			if status, err := controller.Status(series.TitleNo); err == nil {
				total, downloaded = status.Chapters, status.Downloaded
			}
			status := series.Status
			if status == "" {
				status = "new"
			}

			rows = append(rows, table.Row{
				truncateString(series.Title, 32),
				truncateString(series.Author, 16),
				series.Genre,
				status,
				fmt.Sprintf("%d", total),
				fmt.Sprintf("%d", downloaded),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n📚 Collection (%d series)\n\n", len(all))
		fmt.Println(t.View())
	},
}
