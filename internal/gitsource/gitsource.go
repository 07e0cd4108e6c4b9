// Package gitsource mirrors git repositories that card files are
// imported from.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones the repository at repoURL into localPath, or pulls the
// latest changes if a clone already exists there.
func Sync(ctx context.Context, repoURL, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning repository", "url", repoURL, "path", localPath)
		if _, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: repoURL}); err != nil {
			return fmt.Errorf("failed to clone %s: %w", repoURL, err)
		}
		return nil

	case err == nil:
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree at %s: %w", localPath, err)
		}
		slog.Info("pulling repository", "url", repoURL, "path", localPath)
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull %s: %w", repoURL, err)
		}
		return nil

	default:
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
}

// LocalPath maps a repository URL to a stable checkout directory under
// baseDir. Both https and scp-style ssh URLs are handled.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	// git@host:user/repo.git
	if host, path, ok := strings.Cut(repoURL, ":"); ok {
		if _, hostname, found := strings.Cut(host, "@"); found {
			return filepath.Join(baseDir, hostname, strings.TrimSuffix(path, ".git")), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL %q", repoURL)
}

// IsGitURL reports whether path looks like a git remote rather than a
// local directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}
