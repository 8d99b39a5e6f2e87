package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"snowbook/internal/common"
	"snowbook/pkg/errors"
	"snowbook/pkg/models"
)

// Service keeps local clones of notebook sources under a cache directory
// and hands back the notebook files they contain.
type Service struct {
	cacheDir string
}

// NewService creates a source sync service. An empty cacheDir defaults
// to ~/.snowbook/sources.
func NewService(cacheDir string) *Service {
	if cacheDir == "" {
		cacheDir = DefaultCacheDirectory()
	}
	return &Service{cacheDir: cacheDir}
}

// DefaultCacheDirectory returns the default location for cached sources
func DefaultCacheDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".snowbook", "sources")
}

// Sync clones or updates the configured source
func (s *Service) Sync(ctx context.Context, source models.Source) error {
	if err := ValidateSource(source); err != nil {
		return err
	}

	localPath := s.LocalPath(source.Name)

	return errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		if err := cloneOrPull(source.GitURL, localPath, source.Branch); err != nil {
			msg := err.Error()
			if strings.Contains(msg, "connection") ||
				strings.Contains(msg, "timeout") ||
				strings.Contains(msg, "unreachable") {
				return errors.New(errors.ErrCodeNetworkUnavailable,
					"network error while syncing source").
					WithContext("source", source.Name).
					WithContext("url", source.GitURL).
					AsRecoverable()
			}

			if strings.Contains(msg, "authentication") ||
				strings.Contains(msg, "authorization") ||
				strings.Contains(msg, "unauthorized") {
				return errors.New(errors.ErrCodeSourceSyncFailed,
					"authentication failed for source").
					WithContext("source", source.Name).
					WithSuggestions(
						"Check your Git credentials",
						"Set GIT_USERNAME/GIT_PASSWORD or GITHUB_TOKEN for HTTPS sources",
						"Try cloning the repository manually to verify access",
					)
			}

			return errors.Wrap(err, errors.ErrCodeSourceSyncFailed,
				fmt.Sprintf("failed to sync source %s", source.Name))
		}
		return nil
	})
}

// Notebooks lists the notebook files a synced source provides, relative
// to the source's configured path, sorted by name.
func (s *Service) Notebooks(source models.Source) ([]string, error) {
	root := s.LocalPath(source.Name)
	if source.Path != "" {
		validated, err := common.ValidatePath(filepath.Join(root, source.Path), root)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceInvalid,
				fmt.Sprintf("source %s has an invalid path", source.Name))
		}
		root = validated
	}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeSourceSyncFailed,
			fmt.Sprintf("source %s has not been synced", source.Name)).
			WithSuggestions("Run 'snowbook pull' to fetch notebook sources")
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}

	sort.Strings(files)
	return files, nil
}

// Synced reports sources present in the cache with their last update time
type SyncedSource struct {
	Name      string
	LocalPath string
	Branch    string
	UpdatedAt time.Time
}

// List returns information about every cached source
func (s *Service) List() ([]SyncedSource, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read source cache: %w", err)
	}

	var sources []SyncedSource
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		localPath := filepath.Join(s.cacheDir, entry.Name())
		if _, err := os.Stat(filepath.Join(localPath, ".git")); os.IsNotExist(err) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		sources = append(sources, SyncedSource{
			Name:      entry.Name(),
			LocalPath: localPath,
			Branch:    currentBranch(localPath),
			UpdatedAt: info.ModTime(),
		})
	}

	return sources, nil
}

// LocalPath returns where a source is cached locally
func (s *Service) LocalPath(name string) string {
	safeName := strings.ReplaceAll(name, "/", "_")
	safeName = strings.ReplaceAll(safeName, "\\", "_")
	return filepath.Join(s.cacheDir, safeName)
}

// ValidateSource performs basic validation on a source definition
func ValidateSource(source models.Source) error {
	if source.Name == "" {
		return errors.New(errors.ErrCodeSourceInvalid, "source name cannot be empty")
	}
	if source.GitURL == "" {
		return errors.New(errors.ErrCodeSourceInvalid, "source git_url cannot be empty").
			WithContext("source", source.Name)
	}
	if !isSSHURL(source.GitURL) && !isHTTPSURL(source.GitURL) && !filepath.IsAbs(source.GitURL) {
		return errors.New(errors.ErrCodeSourceInvalid,
			"source git_url must be SSH, HTTPS, or an absolute local path").
			WithContext("source", source.Name).
			WithContext("url", source.GitURL)
	}
	return nil
}

func cloneOrPull(gitURL, localPath, branch string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), common.DirPermissionNormal); err != nil {
		return fmt.Errorf("failed to create source cache directory: %w", err)
	}

	auth := getAuthMethod(gitURL)

	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repository: %w", err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree: %w", err)
		}

		err = worktree.Pull(&git.PullOptions{
			RemoteName: "origin",
			Auth:       auth,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("failed to pull updates: %w", err)
		}
	} else {
		opts := &git.CloneOptions{
			URL:  gitURL,
			Auth: auth,
		}
		if branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
			opts.SingleBranch = true
		}
		if _, err := git.PlainClone(localPath, false, opts); err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		return nil
	}

	if branch != "" {
		if err := checkoutBranch(localPath, branch); err != nil {
			return fmt.Errorf("failed to checkout branch %s: %w", branch, err)
		}
	}

	return nil
}

func checkoutBranch(repoPath, branch string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(branchRef, false); err == nil {
		return worktree.Checkout(&git.CheckoutOptions{Branch: branchRef})
	}

	// Create a local branch tracking the remote one
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found: %w", branch, err)
	}

	return worktree.Checkout(&git.CheckoutOptions{
		Hash:   remoteRef.Hash(),
		Branch: branchRef,
		Create: true,
	})
}

func currentBranch(repoPath string) string {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return ""
	}

	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}

	return head.Name().Short()
}

// getAuthMethod returns the appropriate auth method based on the URL
func getAuthMethod(gitURL string) transport.AuthMethod {
	if isSSHURL(gitURL) {
		sshKeyPath := filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		if _, err := os.Stat(sshKeyPath); err == nil {
			auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, "")
			if err == nil {
				return auth
			}
		}
	}

	if isHTTPSURL(gitURL) {
		username := os.Getenv("GIT_USERNAME")
		password := os.Getenv("GIT_PASSWORD")
		if username != "" && password != "" {
			return &http.BasicAuth{Username: username, Password: password}
		}

		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			return &http.BasicAuth{Username: "token", Password: token}
		}
	}

	return nil
}

func isSSHURL(gitURL string) bool {
	return strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://")
}

func isHTTPSURL(gitURL string) bool {
	return strings.HasPrefix(gitURL, "https://") || strings.HasPrefix(gitURL, "http://")
}
