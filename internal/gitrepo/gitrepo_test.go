package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowbook/pkg/models"
)

// createSourceRepository initializes a local git repository holding
// notebook files, usable as a clone origin via its absolute path.
func createSourceRepository(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		sub := filepath.Dir(name)
		if sub != "." {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0755))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
		_, err = worktree.Add(name)
		require.NoError(t, err)
	}

	_, err = worktree.Commit("add notebooks", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}

func TestSyncClonesLocalSource(t *testing.T) {
	origin := createSourceRepository(t, map[string]string{
		"storage.yaml": "name: storage\ncells: []\n",
		"readme.md":    "notes",
	})

	svc := NewService(t.TempDir())
	source := models.Source{Name: "analytics", GitURL: origin}

	require.NoError(t, svc.Sync(context.Background(), source))

	_, err := os.Stat(filepath.Join(svc.LocalPath("analytics"), "storage.yaml"))
	assert.NoError(t, err)
}

func TestSyncTwiceIsIdempotent(t *testing.T) {
	origin := createSourceRepository(t, map[string]string{
		"a.yaml": "name: a\n",
	})

	svc := NewService(t.TempDir())
	source := models.Source{Name: "src", GitURL: origin}

	require.NoError(t, svc.Sync(context.Background(), source))
	require.NoError(t, svc.Sync(context.Background(), source))
}

func TestNotebooksListsOnlyYAML(t *testing.T) {
	origin := createSourceRepository(t, map[string]string{
		"b.yaml":    "name: b\n",
		"a.yml":     "name: a\n",
		"readme.md": "notes",
	})

	svc := NewService(t.TempDir())
	source := models.Source{Name: "src", GitURL: origin}
	require.NoError(t, svc.Sync(context.Background(), source))

	files, err := svc.Notebooks(source)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.yml", filepath.Base(files[0]))
	assert.Equal(t, "b.yaml", filepath.Base(files[1]))
}

func TestNotebooksHonorsSourcePath(t *testing.T) {
	origin := createSourceRepository(t, map[string]string{
		"notebooks/a.yaml": "name: a\n",
		"b.yaml":           "name: b\n",
	})

	svc := NewService(t.TempDir())
	source := models.Source{Name: "src", GitURL: origin, Path: "notebooks"}
	require.NoError(t, svc.Sync(context.Background(), source))

	files, err := svc.Notebooks(source)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.yaml", filepath.Base(files[0]))
}

func TestNotebooksUnsyncedSource(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.Notebooks(models.Source{Name: "ghost", GitURL: "/tmp/nowhere"})
	assert.Error(t, err)
}

func TestListCachedSources(t *testing.T) {
	origin := createSourceRepository(t, map[string]string{"a.yaml": "name: a\n"})

	svc := NewService(t.TempDir())
	require.NoError(t, svc.Sync(context.Background(), models.Source{Name: "one", GitURL: origin}))

	sources, err := svc.List()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "one", sources[0].Name)
	assert.Equal(t, svc.LocalPath("one"), sources[0].LocalPath)
}

func TestListEmptyCache(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing"))
	sources, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		source  models.Source
		wantErr bool
	}{
		{"valid https", models.Source{Name: "s", GitURL: "https://github.com/org/repo.git"}, false},
		{"valid ssh", models.Source{Name: "s", GitURL: "git@github.com:org/repo.git"}, false},
		{"valid local", models.Source{Name: "s", GitURL: "/srv/repos/notebooks"}, false},
		{"missing name", models.Source{GitURL: "https://github.com/org/repo.git"}, true},
		{"missing url", models.Source{Name: "s"}, true},
		{"relative path", models.Source{Name: "s", GitURL: "repos/notebooks"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.source)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocalPathSanitizesName(t *testing.T) {
	svc := NewService("/cache")
	assert.Equal(t, filepath.Join("/cache", "org_repo"), svc.LocalPath("org/repo"))
}
