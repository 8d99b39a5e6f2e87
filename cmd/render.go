package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"snowbook/internal/config"
	"snowbook/internal/render"
)

var (
	renderEnv  string
	renderVars []string
)

var renderCmd = &cobra.Command{
	Use:   "render <notebook>",
	Short: "Resolve a notebook's templates without executing anything",
	Long: `Render performs a dry run: value cells bind their defaults, external
variables come from --env and --var, and each cell's body is printed with
every resolvable placeholder substituted. Placeholders whose values only
exist at run time (query results) stay verbatim and are marked deferred.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nb, err := loadNotebookArg(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		sctx, err := sessionContext(cfg, renderEnv)
		if err != nil {
			return err
		}

		vars := map[string]string{}
		for name, value := range map[string]string{
			"env_name":  renderEnv,
			"database":  sctx.Database,
			"schema":    sctx.Schema,
			"warehouse": sctx.Warehouse,
			"role":      sctx.Role,
		} {
			if value != "" {
				vars[name] = value
			}
		}
		for _, pair := range renderVars {
			name, value, ok := strings.Cut(pair, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid --var %q, expected name=value", pair)
			}
			vars[name] = value
		}

		resolved, err := nb.Preview(vars)
		if err != nil {
			return err
		}

		render.ShowHeader(fmt.Sprintf("Notebook: %s (dry run)", nb.Name))
		for _, rc := range resolved {
			fmt.Printf("\n%s %s (%s)\n", render.ColorBold("●"), render.ColorBold(rc.Cell.Name), rc.Cell.Kind)
			if len(rc.Deferred) > 0 {
				render.ShowWarning(fmt.Sprintf("deferred until run time: %s", strings.Join(rc.Deferred, ", ")))
			}
			for _, line := range strings.Split(strings.TrimRight(rc.Text, "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
		}

		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderEnv, "env", "e", "", "Named environment to resolve against")
	renderCmd.Flags().StringArrayVar(&renderVars, "var", nil, "Bind an external variable (name=value), repeatable")
	rootCmd.AddCommand(renderCmd)
}
