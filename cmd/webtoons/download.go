package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kerbaras/webtoons/pkg/app"
	"github.com/kerbaras/webtoons/pkg/config"
	"github.com/kerbaras/webtoons/pkg/data"
	"github.com/kerbaras/webtoons/pkg/download"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [series-url or title-no]",
	Short: "Download chapters of a series",
	Long:  "Download chapter images (and reader comments) for a series, by URL or by its title number from the collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chaptersFlag, _ := cmd.Flags().GetString("chapters")
		noTUI, _ := cmd.Flags().GetBool("no-tui")
		workers, _ := cmd.Flags().GetInt("workers")
		noComments, _ := cmd.Flags().GetBool("no-comments")

		controller, err := services.NewDefaultController(func(s *config.Settings) {
			if workers > 0 {
				s.ImageWorkers = workers
			}
			if noComments {
				s.ExtractComments = false
			}
		})
		if err != nil {
			cobra.CheckErr(err)
		}

		series, chapters, err := resolveSeries(cmd, controller, args[0])
		if err != nil {
			cobra.CheckErr(err)
		}

		if chaptersFlag != "" {
			chapters, err = filterChapterRange(chapters, chaptersFlag)
			if err != nil {
				cobra.CheckErr(err)
			}
			fmt.Printf("📥 Downloading chapters %s of %s\n", chaptersFlag, series.Title)
		} else {
			fmt.Printf("📥 Downloading %s\n", series.Title)
		}

		outcome, err := runWithProgress(cmd, controller, noTUI, func() (*download.SeriesOutcome, error) {
			return controller.Download(cmd.Context(), series, chapters)
		})
		if err != nil {
			cobra.CheckErr(fmt.Errorf("download failed: %w", err))
		}
		printOutcome(series.TitleNo, outcome)
	},
}

func init() {
	downloadCmd.Flags().StringP("chapters", "c", "", "Episode range (e.g., 1-10)")
	downloadCmd.Flags().IntP("workers", "w", 0, "Concurrent image downloads (overrides settings)")
	downloadCmd.Flags().Bool("no-comments", false, "Skip reader comment extraction")
	downloadCmd.Flags().Bool("no-tui", false, "Plain progress output instead of the TUI")
}

// resolveSeries accepts either a series URL (fetched fresh) or a
// title number already in the collection.
func resolveSeries(cmd *cobra.Command, controller *services.Controller, arg string) (*data.Series, []*data.Chapter, error) {
	if strings.Contains(arg, "://") {
		fmt.Printf("🔍 Fetching series index...\n")
		return controller.FetchSeries(cmd.Context(), arg)
	}

	status, err := controller.Status(arg)
	if err != nil {
		return nil, nil, err
	}
	chapters, err := controller.Chapters(arg)
	if err != nil {
		return nil, nil, err
	}
	return status.Series, chapters, nil
}

func filterChapterRange(chapters []*data.Chapter, spec string) ([]*data.Chapter, error) {
	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid chapter range %q, use --chapters 1-10", spec)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid chapter range %q: %w", spec, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid chapter range %q: %w", spec, err)
	}

	var out []*data.Chapter
	for _, ch := range chapters {
		no, err := strconv.Atoi(ch.EpisodeNo)
		if err != nil {
			continue
		}
		if no >= start && no <= end {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no chapters in range %s", spec)
	}
	return out, nil
}

// runWithProgress runs the download in the background while either the
// TUI or a plain progress loop consumes tracker snapshots.
func runWithProgress(cmd *cobra.Command, controller *services.Controller, noTUI bool, run func() (*download.SeriesOutcome, error)) (*download.SeriesOutcome, error) {
	tracker := controller.Progress()

	// Observe before the run starts so no snapshot is missed.
	var snaps <-chan download.Snapshot
	var tui *app.App
	if noTUI {
		snaps = tracker.Observe()
	} else {
		tui = app.NewApp("Downloading", tracker)
	}

	var outcome *download.SeriesOutcome
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer tracker.Close()
		outcome, runErr = run()
	}()

	if noTUI {
		for snap := range snaps {
			if snap.Total == 0 {
				continue
			}
			fmt.Printf("  %d/%d images  %s\n", snap.Succeeded+snap.Failed, snap.Total, snap.Current)
		}
	} else {
		if err := tui.Run(); err != nil {
			return nil, err
		}
	}

	<-done
	return outcome, runErr
}

func printOutcome(titleNo string, outcome *download.SeriesOutcome) {
	if outcome == nil {
		return
	}

	if outcome.AllSucceeded {
		fmt.Println("✅ Download complete!")
	} else {
		failed := outcome.FailedChapters()
		fmt.Printf("⚠️  %d chapter(s) did not finish:\n", len(failed))
		for _, ch := range failed {
			fmt.Printf("   Episode %s (%d/%d images)", ch.ChapterID, ch.Completed, ch.Total)
			if ch.Err != nil {
				fmt.Printf(": %v", ch.Err)
			}
			fmt.Println()
		}
		fmt.Printf("💡 To continue later, use: webtoons resume %s\n", titleNo)
	}

	if outcome.PersistErr != nil {
		fmt.Printf("⚠️  Queue state may be stale: %v\n", outcome.PersistErr)
	}
}
