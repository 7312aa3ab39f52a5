package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/webtoons/pkg/integrations"
	"github.com/kerbaras/webtoons/pkg/services"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [title-no]",
	Short: "Export downloaded chapters to EPUB",
	Long:  "Compile every downloaded chapter of a series into a single EPUB file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputDir, _ := cmd.Flags().GetString("output")
		ereader, _ := cmd.Flags().GetBool("ereader")

		controller, err := services.NewDefaultController()
		if err != nil {
			cobra.CheckErr(err)
		}

		status, err := controller.Status(args[0])
		if err != nil {
			cobra.CheckErr(err)
		}
		chapters, err := controller.Chapters(args[0])
		if err != nil {
			cobra.CheckErr(err)
		}

		if outputDir == "" {
			homeDir, _ := os.UserHomeDir()
			outputDir = filepath.Join(homeDir, "Webtoons")
		}

		var processor *integrations.ImageProcessor
		if ereader {
			processor = integrations.NewImageProcessor(integrations.EReaderSettings())
			fmt.Println("🖼️  Optimizing pages for e-reader display")
		}

		builder := integrations.NewEPubBuilder(outputDir, processor)
		path, err := builder.CreateEPub(status.Series, chapters)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("EPUB generation failed: %w", err))
		}

		fmt.Printf("📖 EPUB created: %s\n", path)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output directory (defaults to ~/Webtoons)")
	exportCmd.Flags().Bool("ereader", false, "Downscale and grayscale pages for e-readers")
}
