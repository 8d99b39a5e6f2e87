package notebook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"snowbook/internal/common"
	"snowbook/pkg/errors"
)

// Load reads and validates a notebook file
func Load(path string) (*Notebook, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid notebook path")
	}

	data, err := os.ReadFile(cleaned) // #nosec G304 - path is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotebookNotFound,
				fmt.Sprintf("notebook %s not found", path))
		}
		return nil, errors.Wrap(err, errors.ErrCodeFilePermission,
			fmt.Sprintf("failed to read notebook %s", path))
	}

	name := strings.TrimSuffix(filepath.Base(cleaned), filepath.Ext(cleaned))
	return Parse(data, name)
}

// Parse decodes a notebook document. fallbackName is used when the document
// carries no name of its own.
func Parse(data []byte, fallbackName string) (*Notebook, error) {
	var nb Notebook
	if err := yaml.Unmarshal(data, &nb); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotebookInvalid, "failed to parse notebook")
	}

	if nb.Name == "" {
		nb.Name = fallbackName
	}

	for _, c := range nb.Cells {
		if c.Kind == "" {
			c.Kind = KindQuery
		}
	}

	if err := nb.Validate(); err != nil {
		return nil, err
	}

	return &nb, nil
}

// Validate checks structural invariants: unique identifier names, known
// kinds, non-empty bodies where required, and no forward references between
// cells. Placeholders that match no cell name are assumed to be external
// variables and are checked at run time.
func (n *Notebook) Validate() error {
	if len(n.Cells) == 0 {
		return errors.NotebookError("notebook has no cells", n.Name)
	}

	declared := make(map[string]int, len(n.Cells))

	for i, c := range n.Cells {
		if c.Name == "" {
			return errors.NotebookError(fmt.Sprintf("cell %d has no name", i+1), n.Name)
		}
		if !isIdentifier(c.Name) {
			return errors.NotebookError(
				fmt.Sprintf("cell name %q is not a valid identifier", c.Name), n.Name)
		}
		if _, dup := declared[c.Name]; dup {
			return errors.DuplicateBindingError(c.Name).
				WithContext("notebook", n.Name)
		}

		switch c.Kind {
		case KindQuery:
			if strings.TrimSpace(c.Body) == "" {
				return errors.NotebookError(
					fmt.Sprintf("query cell %q has an empty body", c.Name), n.Name)
			}
		case KindValue:
			if c.Body == "" && c.Default == "" && c.Prompt == "" {
				return errors.NotebookError(
					fmt.Sprintf("value cell %q needs a body, default, or prompt", c.Name), n.Name)
			}
		default:
			return errors.NotebookError(
				fmt.Sprintf("cell %q has unknown kind %q", c.Name, c.Kind), n.Name)
		}

		declared[c.Name] = i
	}

	// Forward and self references between cells fail at load time; they
	// could never resolve at run time.
	for i, c := range n.Cells {
		for _, ref := range Placeholders(c.Body) {
			if j, isCell := declared[ref]; isCell && j >= i {
				return errors.NotebookError(
					fmt.Sprintf("cell %q references %q, which is not bound until later", c.Name, ref),
					n.Name).
					WithContext("cell", c.Name).
					WithContext("reference", ref)
			}
		}
	}

	return nil
}

// Discover lists notebook files (*.yaml, *.yml) under the given directories
func Discover(dirs []string) ([]string, error) {
	var found []string

	for _, dir := range dirs {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidInput,
					fmt.Sprintf("failed to list notebooks in %s", dir))
			}
			found = append(found, matches...)
		}
	}

	return found, nil
}
