package notebook

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbook/internal/snowflake"
	"snowbook/pkg/errors"
)

// fakeEngine records submitted queries and replies from a canned script
type fakeEngine struct {
	queries []string
	results map[string]*snowflake.Result
	err     error
}

func (f *fakeEngine) Query(ctx context.Context, query string) (*snowflake.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[query]; ok {
		return res, nil
	}
	return &snowflake.Result{Columns: []string{"OK"}, Rows: [][]interface{}{{"1"}}}, nil
}

// fakePrompter returns scripted answers for value cells
type fakePrompter struct {
	answers  map[string]string
	defaults []string
	err      error
}

func (f *fakePrompter) Input(message, defaultValue string) (string, error) {
	f.defaults = append(f.defaults, defaultValue)
	if f.err != nil {
		return "", f.err
	}
	if answer, ok := f.answers[message]; ok {
		return answer, nil
	}
	return defaultValue, nil
}

func TestRunValueCellBindsWithoutEngine(t *testing.T) {
	r := NewRunner(Options{})
	cell := &Cell{Name: "days", Kind: KindValue, Body: "7"}

	value, err := r.Run(context.Background(), cell)
	require.NoError(t, err)
	assert.Equal(t, "7", value)
	assert.Equal(t, StateBound, cell.State())

	bound, ok := r.Environment().Lookup("days")
	assert.True(t, ok)
	assert.Equal(t, "7", bound)
}

func TestRunValueCellPrompts(t *testing.T) {
	prompter := &fakePrompter{answers: map[string]string{"Minimum GB": "25"}}
	r := NewRunner(Options{Prompter: prompter})
	cell := &Cell{Name: "min_gb", Kind: KindValue, Prompt: "Minimum GB", Default: "1"}

	value, err := r.Run(context.Background(), cell)
	require.NoError(t, err)
	assert.Equal(t, "25", value)
	assert.Equal(t, []string{"1"}, prompter.defaults)
}

func TestRunQueryCellSubmitsResolvedText(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRunner(Options{Engine: engine})

	require.NoError(t, r.Bind("selection", "DB.SCHEMA.T"))

	cell := &Cell{
		Name: "matches",
		Kind: KindQuery,
		Body: "SELECT * FROM t WHERE name LIKE '%{{selection}}%'",
	}

	_, err := r.Run(context.Background(), cell)
	require.NoError(t, err)
	require.Len(t, engine.queries, 1)
	assert.Equal(t, "SELECT * FROM t WHERE name LIKE '%DB.SCHEMA.T%'", engine.queries[0])
	assert.Equal(t, StateBound, cell.State())
}

func TestRunForwardReferenceFails(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRunner(Options{Engine: engine})

	nb := &Notebook{
		Name: "fwd",
		Cells: []*Cell{
			{Name: "first", Kind: KindQuery, Body: "SELECT {{second}}"},
			{Name: "second", Kind: KindValue, Body: "2"},
		},
	}

	err := r.RunAll(context.Background(), nb)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnresolvedPlaceholder, errors.GetErrorCode(err))

	// nothing was submitted, nothing was bound, later cell never ran
	assert.Empty(t, engine.queries)
	assert.Empty(t, r.Environment().Names())
	assert.Equal(t, StateFailed, nb.Cells[0].State())
	assert.Equal(t, StateUnevaluated, nb.Cells[1].State())
}

func TestRunEngineErrorLeavesNoBinding(t *testing.T) {
	cause := fmt.Errorf("SQL access control error: not authorized to SELECT")
	engine := &fakeEngine{err: errors.EngineError("Query engine rejected statement", "SELECT 1", cause)}
	r := NewRunner(Options{Engine: engine})

	cell := &Cell{Name: "denied", Kind: KindQuery, Body: "SELECT 1"}

	_, err := r.Run(context.Background(), cell)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEnginePermission, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "not authorized")
	assert.False(t, r.Environment().Has("denied"))
	assert.Equal(t, StateFailed, cell.State())
}

func TestRunDuplicateBindingStrict(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRunner(Options{Engine: engine})

	cell := &Cell{Name: "n", Kind: KindValue, Body: "1"}
	_, err := r.Run(context.Background(), cell)
	require.NoError(t, err)

	again := &Cell{Name: "n", Kind: KindQuery, Body: "SELECT 2"}
	_, err = r.Run(context.Background(), again)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateBinding, errors.GetErrorCode(err))

	// the conflict is detected before anything reaches the engine
	assert.Empty(t, engine.queries)
	v, _ := r.Environment().Lookup("n")
	assert.Equal(t, "1", v)
}

func TestRunRebindAllowed(t *testing.T) {
	r := NewRunner(Options{AllowRebind: true})

	first := &Cell{Name: "n", Kind: KindValue, Body: "1"}
	_, err := r.Run(context.Background(), first)
	require.NoError(t, err)

	second := &Cell{Name: "n", Kind: KindValue, Body: "2"}
	_, err = r.Run(context.Background(), second)
	require.NoError(t, err)

	v, _ := r.Environment().Lookup("n")
	assert.Equal(t, "2", v)
}

func TestRerunResolvesAgainstCurrentEnvironment(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRunner(Options{Engine: engine, AllowRebind: true})

	require.NoError(t, r.Bind("v", "old"))
	cell := &Cell{Name: "q", Kind: KindQuery, Body: "SELECT '{{v}}'"}

	_, err := r.Run(context.Background(), cell)
	require.NoError(t, err)

	r.Environment().Rebind("v", "new")
	_, err = r.Run(context.Background(), cell)
	require.NoError(t, err)

	require.Len(t, engine.queries, 2)
	assert.Equal(t, "SELECT 'old'", engine.queries[0])
	assert.Equal(t, "SELECT 'new'", engine.queries[1])
}

func TestRerunIdenticalWithUnchangedEnvironment(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRunner(Options{Engine: engine, AllowRebind: true})

	require.NoError(t, r.Bind("v", "same"))
	cell := &Cell{Name: "q", Kind: KindQuery, Body: "SELECT '{{v}}'"}

	_, err := r.Run(context.Background(), cell)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), cell)
	require.NoError(t, err)

	require.Len(t, engine.queries, 2)
	assert.Equal(t, engine.queries[0], engine.queries[1])
}

func TestRunAllExecutesInDeclarationOrder(t *testing.T) {
	count := &snowflake.Result{Columns: []string{"C"}, Rows: [][]interface{}{{int64(99)}}}
	engine := &fakeEngine{results: map[string]*snowflake.Result{
		"SELECT COUNT(*) FROM PROD.EVENTS": count,
	}}
	r := NewRunner(Options{Engine: engine})

	nb := &Notebook{
		Name: "pipeline",
		Cells: []*Cell{
			{Name: "db", Kind: KindValue, Body: "PROD"},
			{Name: "row_count", Kind: KindQuery, Body: "SELECT COUNT(*) FROM {{db}}.EVENTS"},
			{Name: "summary", Kind: KindQuery, Body: "SELECT {{row_count}} AS LOADED"},
		},
	}

	require.NoError(t, r.RunAll(context.Background(), nb))

	// the 1x1 result of row_count substitutes as its scalar
	assert.Equal(t, []string{
		"SELECT COUNT(*) FROM PROD.EVENTS",
		"SELECT 99 AS LOADED",
	}, engine.queries)

	for _, c := range nb.Cells {
		assert.Equal(t, StateBound, c.State(), c.Name)
	}
	assert.Equal(t, []string{"db", "row_count", "summary"}, r.Environment().Names())
}

func TestRunPromptError(t *testing.T) {
	prompter := &fakePrompter{err: fmt.Errorf("interrupt")}
	r := NewRunner(Options{Prompter: prompter})
	cell := &Cell{Name: "v", Kind: KindValue, Prompt: "Value?"}

	_, err := r.Run(context.Background(), cell)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUserInput, errors.GetErrorCode(err))
	assert.False(t, r.Environment().Has("v"))
}
