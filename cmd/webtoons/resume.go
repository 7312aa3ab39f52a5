package cmd

import (
	"fmt"

	"github.com/kerbaras/webtoons/pkg/download"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [title-no]",
	Short: "Resume an interrupted download",
	Long:  "Continue a download from its persisted queue, skipping everything already confirmed on disk",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTUI, _ := cmd.Flags().GetBool("no-tui")

		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		fmt.Printf("📥 Resuming series %s\n", args[0])
		outcome, err := runWithProgress(cmd, controller, noTUI, func() (*download.SeriesOutcome, error) {
			return controller.Resume(cmd.Context(), args[0])
		})
		if err != nil {
			cobra.CheckErr(fmt.Errorf("resume failed: %w", err))
		}
		printOutcome(args[0], outcome)
	},
}

func init() {
	resumeCmd.Flags().Bool("no-tui", false, "Plain progress output instead of the TUI")
}
