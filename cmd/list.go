package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"snowbook/internal/config"
	"snowbook/internal/gitrepo"
	"snowbook/internal/notebook"
	"snowbook/internal/render"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available notebooks",
	Long: `List shows every notebook found under the configured notebook
directories and in synced git sources, with its description and cell count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		files, err := notebook.Discover(notebookDirs(cfg))
		if err != nil {
			return err
		}

		sources := gitrepo.NewService("")
		for _, source := range cfg.Sources {
			sourceFiles, err := sources.Notebooks(source)
			if err != nil {
				render.ShowWarning(fmt.Sprintf("source %s skipped: %s", source.Name, firstLine(err.Error())))
				continue
			}
			files = append(files, sourceFiles...)
		}

		if len(files) == 0 {
			render.ShowInfo("No notebooks found. Run 'snowbook init' to scaffold examples.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Cells", "Description", "Path"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)

		for _, file := range files {
			nb, err := notebook.Load(file)
			if err != nil {
				table.Append([]string{"?", "-", firstLine(err.Error()), file})
				continue
			}
			table.Append([]string{nb.Name, fmt.Sprintf("%d", len(nb.Cells)), nb.Description, file})
		}

		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
