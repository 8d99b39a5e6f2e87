package notebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbook/pkg/errors"
)

const sampleNotebook = `name: query_history
description: Query volume per user.
cells:
  - name: days
    kind: value
    prompt: Days of history
    default: "7"
  - name: queries_by_user
    body: |
      SELECT USER_NAME, COUNT(*) AS NUMBER_OF_QUERIES
      FROM SNOWFLAKE.ACCOUNT_USAGE.QUERY_HISTORY
      WHERE START_TIME >= DATEADD('day', -{{days}}, CURRENT_TIMESTAMP())
      GROUP BY USER_NAME
      ORDER BY NUMBER_OF_QUERIES DESC
    render:
      bar_column: NUMBER_OF_QUERIES
      limit: 20
`

func TestParse(t *testing.T) {
	nb, err := Parse([]byte(sampleNotebook), "fallback")
	require.NoError(t, err)

	assert.Equal(t, "query_history", nb.Name)
	require.Len(t, nb.Cells, 2)

	assert.Equal(t, KindValue, nb.Cells[0].Kind)
	assert.Equal(t, "7", nb.Cells[0].Default)

	// kind defaults to query
	assert.Equal(t, KindQuery, nb.Cells[1].Kind)
	require.NotNil(t, nb.Cells[1].Render)
	assert.Equal(t, "NUMBER_OF_QUERIES", nb.Cells[1].Render.BarColumn)
	assert.Equal(t, 20, nb.Cells[1].Render.Limit)
}

func TestParseUsesFallbackName(t *testing.T) {
	nb, err := Parse([]byte("cells:\n  - name: a\n    kind: value\n    body: \"1\"\n"), "my_notebook")
	require.NoError(t, err)
	assert.Equal(t, "my_notebook", nb.Name)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query_history.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleNotebook), 0644))

	nb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "query_history", nb.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotebookNotFound, errors.GetErrorCode(err))
}

func TestValidateRejectsInvalidNotebooks(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode errors.ErrorCode
	}{
		{
			name:     "no cells",
			yaml:     "name: empty\n",
			wantCode: errors.ErrCodeNotebookInvalid,
		},
		{
			name: "duplicate names",
			yaml: `cells:
  - name: a
    kind: value
    body: "1"
  - name: a
    kind: value
    body: "2"
`,
			wantCode: errors.ErrCodeDuplicateBinding,
		},
		{
			name: "unknown kind",
			yaml: `cells:
  - name: a
    kind: chart
    body: "1"
`,
			wantCode: errors.ErrCodeNotebookInvalid,
		},
		{
			name: "query without body",
			yaml: `cells:
  - name: a
    kind: query
`,
			wantCode: errors.ErrCodeNotebookInvalid,
		},
		{
			name: "invalid cell name",
			yaml: `cells:
  - name: "not a name"
    kind: value
    body: "1"
`,
			wantCode: errors.ErrCodeNotebookInvalid,
		},
		{
			name: "forward reference",
			yaml: `cells:
  - name: first
    body: "SELECT {{second}}"
  - name: second
    kind: value
    body: "2"
`,
			wantCode: errors.ErrCodeNotebookInvalid,
		},
		{
			name: "self reference",
			yaml: `cells:
  - name: a
    body: "SELECT {{a}}"
`,
			wantCode: errors.ErrCodeNotebookInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "t")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetErrorCode(err))
		})
	}
}

func TestValidateAllowsExternalVariables(t *testing.T) {
	// a placeholder matching no cell name is an external variable, checked
	// at run time rather than load time
	yaml := `cells:
  - name: q
    body: "SELECT * FROM {{database}}.t"
`
	_, err := Parse([]byte(yaml), "t")
	assert.NoError(t, err)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.sql"), []byte("x"), 0644))

	found, err := Discover([]string{dir})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestPreview(t *testing.T) {
	yaml := `cells:
  - name: days
    kind: value
    prompt: Days of history
    default: "7"
  - name: queries_by_user
    body: "SELECT USER_NAME FROM QH WHERE START_TIME >= DATEADD('day', -{{days}}, CURRENT_TIMESTAMP())"
  - name: top_user
    body: "SELECT {{queries_by_user}}"
`
	nb, err := Parse([]byte(yaml), "t")
	require.NoError(t, err)

	resolved, err := nb.Preview(nil)
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	// value cell used its default without prompting
	assert.Contains(t, resolved[1].Text, "DATEADD('day', -7,")
	assert.Empty(t, resolved[1].Deferred)

	// reference to a query result stays verbatim and is reported
	assert.Equal(t, "SELECT {{queries_by_user}}", resolved[2].Text)
	assert.Equal(t, []string{"queries_by_user"}, resolved[2].Deferred)
}

func TestPreviewVarsOverrideDefaults(t *testing.T) {
	yaml := `cells:
  - name: q
    body: "SELECT * FROM {{database}}.t LIMIT {{limit}}"
`
	nb, err := Parse([]byte(yaml), "t")
	require.NoError(t, err)

	resolved, err := nb.Preview(map[string]string{"database": "DEV_DB", "limit": "10"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM DEV_DB.t LIMIT 10", resolved[0].Text)
}

func TestPreviewUnknownNameFails(t *testing.T) {
	yaml := `cells:
  - name: q
    body: "SELECT {{undefined_var}}"
`
	nb, err := Parse([]byte(yaml), "t")
	require.NoError(t, err)

	_, err = nb.Preview(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnresolvedPlaceholder, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "undefined_var")
}
