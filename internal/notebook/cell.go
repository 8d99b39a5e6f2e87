package notebook

// Kind distinguishes query-producing cells from value-producing cells
type Kind string

const (
	// KindQuery cells submit resolved SQL to the query engine
	KindQuery Kind = "query"
	// KindValue cells bind a literal or operator-supplied value
	KindValue Kind = "value"
)

// State tracks a cell through one execution pass
type State int

const (
	StateUnevaluated State = iota
	StateResolving
	StateExecuting
	StateBound
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateUnevaluated:
		return "unevaluated"
	case StateResolving:
		return "resolving"
	case StateExecuting:
		return "executing"
	case StateBound:
		return "bound"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RenderSpec is a rendering hint for a cell's tabular result
type RenderSpec struct {
	// BarColumn draws the named numeric column as a proportional bar
	BarColumn string `yaml:"bar_column"`
	// TopColumn prints the row holding the maximum of the named column,
	// ties broken by first row in engine order
	TopColumn string `yaml:"top_column"`
	// Limit caps the number of rows displayed
	Limit int `yaml:"limit"`
}

// Cell is one unit of a notebook: a named query template or a
// value-producing step. Its result binds under Name once evaluated.
type Cell struct {
	Name    string      `yaml:"name"`
	Kind    Kind        `yaml:"kind"`
	Body    string      `yaml:"body"`
	Prompt  string      `yaml:"prompt"`
	Default string      `yaml:"default"`
	Render  *RenderSpec `yaml:"render"`

	state State
}

// State returns the cell's state for the current execution pass
func (c *Cell) State() State {
	return c.state
}

// Notebook is an ordered sequence of cells executed in declaration order
type Notebook struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Cells       []*Cell `yaml:"cells"`
}

// CellByName returns the named cell, or nil
func (n *Notebook) CellByName(name string) *Cell {
	for _, c := range n.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Reset returns every cell to the unevaluated state for a fresh pass
func (n *Notebook) Reset() {
	for _, c := range n.Cells {
		c.state = StateUnevaluated
	}
}
