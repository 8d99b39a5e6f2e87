package notebook

import (
	"context"
	"fmt"

	"snowbook/internal/snowflake"
	"snowbook/pkg/errors"
)

// Engine submits resolved SQL text to the external query engine. Execution
// semantics, isolation, and performance are entirely the engine's concern.
type Engine interface {
	Query(ctx context.Context, query string) (*snowflake.Result, error)
}

// Prompter supplies operator input for value cells
type Prompter interface {
	Input(message, defaultValue string) (string, error)
}

// Options configures a Runner
type Options struct {
	Engine   Engine
	Prompter Prompter
	// AllowRebind permits last-write-wins rebinding of names. The default
	// is strict: rebinding fails with a duplicate binding error.
	AllowRebind bool
}

// Runner evaluates cells sequentially against a single binding environment.
// Execution is strictly single-threaded; no cell runs concurrently with
// another and the environment is mutated only after a cell succeeds.
type Runner struct {
	engine      Engine
	prompter    Prompter
	env         *Environment
	allowRebind bool
}

// NewRunner creates a runner with a fresh environment
func NewRunner(opts Options) *Runner {
	return &Runner{
		engine:      opts.Engine,
		prompter:    opts.Prompter,
		env:         NewEnvironment(),
		allowRebind: opts.AllowRebind,
	}
}

// Environment returns the runner's binding environment
func (r *Runner) Environment() *Environment {
	return r.env
}

// Bind registers an externally supplied value (operator input, --var flags,
// environment context) without going through the engine.
func (r *Runner) Bind(name string, value interface{}) error {
	if r.allowRebind {
		r.env.Rebind(name, value)
		return nil
	}
	return r.env.Bind(name, value)
}

// Run resolves the cell's template against the current environment,
// executes it if query-producing, and binds the result under the cell's
// name. A failed cell leaves the environment exactly as it was.
func (r *Runner) Run(ctx context.Context, cell *Cell) (interface{}, error) {
	cell.state = StateResolving

	if !r.allowRebind && r.env.Has(cell.Name) {
		cell.state = StateFailed
		return nil, errors.DuplicateBindingError(cell.Name)
	}

	resolved, err := r.env.Resolve(cell.Body)
	if err != nil {
		cell.state = StateFailed
		return nil, err
	}

	var value interface{}

	switch cell.Kind {
	case KindValue:
		text := resolved
		if text == "" {
			text = cell.Default
		}
		if cell.Prompt != "" && r.prompter != nil {
			text, err = r.prompter.Input(cell.Prompt, text)
			if err != nil {
				cell.state = StateFailed
				return nil, errors.Wrap(err, errors.ErrCodeUserInput,
					fmt.Sprintf("input for cell %q failed", cell.Name))
			}
		}
		value = text

	case KindQuery:
		if r.engine == nil {
			cell.state = StateFailed
			return nil, errors.New(errors.ErrCodeInternal, "runner has no query engine")
		}
		cell.state = StateExecuting
		result, err := r.engine.Query(ctx, resolved)
		if err != nil {
			cell.state = StateFailed
			return nil, err
		}
		value = result

	default:
		cell.state = StateFailed
		return nil, errors.New(errors.ErrCodeNotebookInvalid,
			fmt.Sprintf("cell %q has unknown kind %q", cell.Name, cell.Kind))
	}

	if r.allowRebind {
		r.env.Rebind(cell.Name, value)
	} else if err := r.env.Bind(cell.Name, value); err != nil {
		cell.state = StateFailed
		return nil, err
	}

	cell.state = StateBound
	return value, nil
}

// RunAll executes every cell in declaration order, halting at the first
// failure. Cells after a failed cell remain unevaluated.
func (r *Runner) RunAll(ctx context.Context, nb *Notebook) error {
	for _, cell := range nb.Cells {
		if _, err := r.Run(ctx, cell); err != nil {
			return errors.Wrap(err, errors.GetErrorCode(err),
				fmt.Sprintf("cell %q failed", cell.Name)).
				WithContext("cell", cell.Name).
				WithContext("notebook", nb.Name)
		}
	}
	return nil
}
