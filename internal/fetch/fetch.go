// Package fetch clones the configured source repositories into the working
// directory. A failed clone is logged and skipped; fetch never aborts early.
package fetch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/winpv/winbuild/internal/config"
	"github.com/winpv/winbuild/internal/logfields"
)

// All attempts a clone for every configured repository into dir. Individual
// failures are tolerated; every repository gets exactly one attempt.
func All(cfg *config.Config, dir string) {
	for _, repo := range cfg.Repositories {
		name := config.RepoName(repo.URL)
		slog.Info("Cloning repository", logfields.Name(name), logfields.URL(repo.URL), logfields.Branch(repo.Branch))
		if err := clone(repo, filepath.Join(dir, name)); err != nil {
			slog.Error("Clone failed", logfields.Name(name), logfields.Error(err))
		}
	}
}

func clone(repo config.Repository, path string) error {
	opts := &git.CloneOptions{URL: repo.URL, Progress: os.Stdout}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + repo.Branch)
		opts.SingleBranch = true
	}
	repository, err := git.PlainClone(path, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone repository %s: %w", repo.URL, err)
	}
	if ref, herr := repository.Head(); herr == nil {
		slog.Info("Repository cloned", logfields.Path(path), slog.String("commit", ref.Hash().String()[:8]))
	} else {
		slog.Info("Repository cloned", logfields.Path(path))
	}
	return nil
}
