package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snowbook/internal/config"
	"snowbook/internal/notebook"
	"snowbook/internal/render"
	"snowbook/internal/snowflake"
	"snowbook/pkg/models"
)

var (
	runEnv         string
	runVars        []string
	runAllowRebind bool
	runQuiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run <notebook>",
	Short: "Execute a notebook cell by cell",
	Long: `Run executes every cell of a notebook in declaration order. Query cells
submit their resolved SQL to Snowflake and bind the tabular result under the
cell's name; value cells bind literals or prompted input. The run halts at
the first failed cell.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nb, err := loadNotebookArg(args[0])
		if err != nil {
			return err
		}

		service, cfg, err := connectService()
		if err != nil {
			return err
		}
		defer service.Close()

		sctx, err := sessionContext(cfg, runEnv)
		if err != nil {
			return err
		}

		session := snowflake.NewSession(service, sctx)
		runner := notebook.NewRunner(notebook.Options{
			Engine:      session,
			Prompter:    render.SurveyPrompter{},
			AllowRebind: runAllowRebind,
		})

		if err := bindRunVariables(runner, sctx, runEnv, runVars); err != nil {
			return err
		}

		render.ShowHeader(fmt.Sprintf("Notebook: %s", nb.Name))
		if nb.Description != "" {
			fmt.Println(render.ColorDim(nb.Description))
		}

		return runCells(cmd.Context(), runner, nb)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runEnv, "env", "e", "", "Named environment to run against")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Bind an external variable (name=value), repeatable")
	runCmd.Flags().BoolVar(&runAllowRebind, "allow-rebind", false, "Allow names to be rebound, last write wins")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress result rendering")
	rootCmd.AddCommand(runCmd)
}

// loadNotebookArg resolves the argument as a file path first, then as a
// notebook name under the configured notebook directories.
func loadNotebookArg(arg string) (*notebook.Notebook, error) {
	if _, err := os.Stat(arg); err == nil {
		return notebook.Load(arg)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	for _, dir := range notebookDirs(cfg) {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, arg+ext)
			if _, err := os.Stat(candidate); err == nil {
				return notebook.Load(candidate)
			}
		}
	}

	return nil, fmt.Errorf("notebook %q not found (not a file, and not under any notebook directory)", arg)
}

func notebookDirs(cfg *models.Config) []string {
	if len(cfg.NotebookDirs) > 0 {
		return cfg.NotebookDirs
	}
	return []string{"./notebooks"}
}

// bindRunVariables seeds the environment with the session's context (so
// templates can reference database, schema, warehouse, role, env_name) and
// with any --var pairs.
func bindRunVariables(runner *notebook.Runner, sctx snowflake.SessionContext, envName string, vars []string) error {
	contextVars := map[string]string{
		"env_name":  envName,
		"database":  sctx.Database,
		"schema":    sctx.Schema,
		"warehouse": sctx.Warehouse,
		"role":      sctx.Role,
	}
	for name, value := range contextVars {
		if value == "" {
			continue
		}
		if err := runner.Bind(name, value); err != nil {
			return err
		}
	}

	for _, pair := range vars {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --var %q, expected name=value", pair)
		}
		if err := runner.Bind(name, value); err != nil {
			return err
		}
	}

	return nil
}

// runCells drives the runner cell by cell so progress and per-cell results
// can be shown as they happen.
func runCells(ctx context.Context, runner *notebook.Runner, nb *notebook.Notebook) error {
	if ctx == nil {
		ctx = context.Background()
	}

	nb.Reset()
	for i, cell := range nb.Cells {
		render.ShowCellExecution(cell.Name, i+1, len(nb.Cells))

		start := time.Now()
		value, err := runner.Run(ctx, cell)
		elapsed := time.Since(start).Round(time.Millisecond)

		if err != nil {
			render.ShowCellResult(cell.Name, false, firstLine(err.Error()), elapsed.String())
			return err
		}

		detail := ""
		result, isTabular := value.(*snowflake.Result)
		if isTabular {
			detail = fmt.Sprintf("%d rows", result.RowCount())
		}
		render.ShowCellResult(cell.Name, true, detail, elapsed.String())

		if isTabular && !runQuiet && cell.Render != nil {
			if err := renderResult(result, cell.Render); err != nil {
				return err
			}
		}
	}

	fmt.Println()
	render.ShowSuccess(fmt.Sprintf("Notebook %s completed, %d cells bound", nb.Name, len(nb.Cells)))
	return nil
}

func renderResult(result *snowflake.Result, spec *notebook.RenderSpec) error {
	if spec.TopColumn != "" {
		row, err := render.TopRow(result, spec.TopColumn)
		if err != nil {
			return err
		}
		fmt.Printf("\n  %s\n", render.RowSummary(result, row))
		return nil
	}

	fmt.Println()
	return render.Table(os.Stdout, result, render.Options{
		BarColumn: spec.BarColumn,
		Limit:     spec.Limit,
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
