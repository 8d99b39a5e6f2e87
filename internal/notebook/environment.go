package notebook

import (
	"fmt"
	"strconv"
	"strings"

	"snowbook/internal/snowflake"
	"snowbook/pkg/errors"
)

// Environment is the binding environment: an insertion-ordered mapping from
// name to resolved value (scalar, string, or tabular result). Bindings are
// visible to all cells declared after them.
type Environment struct {
	names  []string
	values map[string]interface{}
}

// NewEnvironment creates an empty environment
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]interface{})}
}

// Bind registers a value under name. Binding an already-bound name fails
// with a duplicate binding error.
func (e *Environment) Bind(name string, value interface{}) error {
	if _, exists := e.values[name]; exists {
		return errors.DuplicateBindingError(name)
	}
	e.names = append(e.names, name)
	e.values[name] = value
	return nil
}

// Rebind registers a value under name, overwriting any prior binding
// (last-write-wins). Insertion order keeps the original position.
func (e *Environment) Rebind(name string, value interface{}) {
	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

// Lookup returns the bound value for name
func (e *Environment) Lookup(name string) (interface{}, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Has reports whether name is bound
func (e *Environment) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Names returns bound names in insertion order
func (e *Environment) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Resolve substitutes every {{name}} token in the template with the string
// form of the bound value. Substitution is purely textual: bound values pass
// into the resolved text verbatim, with no escaping of SQL-significant
// characters. A token referencing an unbound name fails resolution.
func (e *Environment) Resolve(template string) (string, error) {
	return substitute(template, func(name string) (string, bool, error) {
		v, ok := e.values[name]
		if !ok {
			return "", false, errors.UnresolvedPlaceholderError(name)
		}
		text, err := FormatValue(v)
		if err != nil {
			return "", false, errors.Wrap(err, errors.ErrCodeValueNotScalar,
				fmt.Sprintf("cannot substitute {{%s}}", name))
		}
		return text, false, nil
	})
}

// substitute scans template for {{identifier}} tokens and calls resolve for
// each. resolve may return keep=true to emit the token verbatim. Text inside
// braces that is not a bare identifier is not a token and passes through
// unchanged.
func substitute(template string, resolve func(name string) (text string, keep bool, err error)) (string, error) {
	var b strings.Builder

	for i := 0; i < len(template); {
		open := strings.Index(template[i:], "{{")
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		b.WriteString(template[i:open])

		end := strings.Index(template[open+2:], "}}")
		if end < 0 {
			b.WriteString(template[open:])
			break
		}

		token := template[open : open+2+end+2]
		name := strings.TrimSpace(template[open+2 : open+2+end])

		if !isIdentifier(name) {
			b.WriteString(token)
		} else {
			text, keep, err := resolve(name)
			if err != nil {
				return "", err
			}
			if keep {
				b.WriteString(token)
			} else {
				b.WriteString(text)
			}
		}

		i = open + 2 + end + 2
	}

	return b.String(), nil
}

// Placeholders returns the identifiers referenced by {{name}} tokens in
// template, in order of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)

	_, _ = substitute(template, func(name string) (string, bool, error) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return "", true, nil
	})

	return names
}

// isIdentifier reports whether s is a valid placeholder identifier
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// FormatValue renders a bound value as the text spliced into resolved SQL.
// Tabular results substitute only when they are a single scalar (1x1);
// anything larger has no textual form.
func FormatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case *snowflake.Result:
		if scalar, ok := val.Scalar(); ok {
			return FormatValue(scalar)
		}
		return "", errors.New(errors.ErrCodeValueNotScalar,
			fmt.Sprintf("tabular result with %d rows and %d columns has no scalar form",
				len(val.Rows), len(val.Columns)))
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
