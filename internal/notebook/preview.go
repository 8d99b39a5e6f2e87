package notebook

import (
	"fmt"

	"snowbook/pkg/errors"
)

// ResolvedCell is the dry-run form of a cell: its template resolved as far
// as possible without touching the query engine.
type ResolvedCell struct {
	Cell *Cell
	// Text is the resolved body. Placeholders listed in Deferred remain
	// verbatim because their values only exist at run time.
	Text     string
	Deferred []string
}

// Preview resolves every cell without executing anything. Value cells bind
// their defaults (prompts are not shown); query cells contribute no value,
// so later references to them stay as verbatim tokens and are reported as
// deferred. References to names that are neither bound nor declared earlier
// fail, exactly as they would during a run.
func (n *Notebook) Preview(vars map[string]string) ([]ResolvedCell, error) {
	env := NewEnvironment()
	for name, value := range vars {
		env.Rebind(name, value)
	}

	deferred := make(map[string]bool)
	out := make([]ResolvedCell, 0, len(n.Cells))

	for _, cell := range n.Cells {
		var kept []string

		text, err := substitute(cell.Body, func(name string) (string, bool, error) {
			if v, ok := env.Lookup(name); ok {
				s, ferr := FormatValue(v)
				if ferr != nil {
					return "", false, ferr
				}
				return s, false, nil
			}
			if deferred[name] {
				kept = append(kept, name)
				return "", true, nil
			}
			return "", false, errors.UnresolvedPlaceholderError(name).
				WithContext("cell", cell.Name)
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.GetErrorCode(err),
				fmt.Sprintf("cell %q failed to resolve", cell.Name))
		}

		switch cell.Kind {
		case KindValue:
			if len(kept) > 0 {
				// value depends on a run-time result; defer it too
				deferred[cell.Name] = true
			} else {
				value := text
				if value == "" {
					value = cell.Default
				}
				env.Rebind(cell.Name, value)
			}
		case KindQuery:
			deferred[cell.Name] = true
		}

		out = append(out, ResolvedCell{Cell: cell, Text: text, Deferred: kept})
	}

	return out, nil
}
