package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"snowbook/internal/config"
	"snowbook/internal/gitrepo"
	"snowbook/internal/render"
)

var pullCmd = &cobra.Command{
	Use:   "pull [source]",
	Short: "Sync notebook sources from git",
	Long: `Pull clones or updates the configured git sources under
~/.snowbook/sources. With an argument, only that source is synced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		sources := cfg.Sources
		if len(args) == 1 {
			sources = nil
			for _, s := range cfg.Sources {
				if s.Name == args[0] {
					sources = append(sources, s)
				}
			}
			if len(sources) == 0 {
				return fmt.Errorf("source %q is not configured", args[0])
			}
		}

		if len(sources) == 0 {
			render.ShowInfo("No sources configured. Add them under 'sources:' in your config.")
			return nil
		}

		svc := gitrepo.NewService("")
		for _, source := range sources {
			render.ShowInfo(fmt.Sprintf("Syncing %s from %s", source.Name, source.GitURL))
			if err := svc.Sync(cmd.Context(), source); err != nil {
				return err
			}

			files, err := svc.Notebooks(source)
			if err != nil {
				return err
			}
			render.ShowSuccess(fmt.Sprintf("%s: %d notebooks", source.Name, len(files)))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
