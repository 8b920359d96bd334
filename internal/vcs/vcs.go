// Package vcs wraps the small slice of go-git/v5 operations the Policy
// Engine and State-Diff Guard need: working-tree status, a name-only
// diff between two revisions, and reading a file's blob contents at a
// given revision. It replaces the original implementation's shelling
// out to the `git` binary with native Go-git calls.
package vcs

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps an opened git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository rooted at path (or any of its ancestors).
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", path, err)
	}
	return &Repo{repo: r}, nil
}

// WorkingTreeChangedFiles lists paths with a non-clean worktree status,
// the native-Go equivalent of `git status --porcelain=v1`. Renames are
// reported under their destination path, matching the original tool's
// "rename destination wins" convention.
func (r *Repo) WorkingTreeChangedFiles() ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("get worktree status: %w", err)
	}

	seen := make(map[string]struct{})
	var out []string
	for path, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		if fileStatus.Extra != "" {
			path = fileStatus.Extra
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out, nil
}

// DiffNameOnly returns the set of paths that differ between the trees of
// the base and head revisions (each resolved via ResolveRevision: branch
// name, tag, or commit SHA). The two trees are compared directly, like
// `git diff --name-only base head`; no merge base is computed, so changes
// made on base after head diverged from it are listed as well.
func (r *Repo) DiffNameOnly(base, head string) ([]string, error) {
	baseTree, err := r.treeForRevision(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base revision %s: %w", base, err)
	}
	headTree, err := r.treeForRevision(head)
	if err != nil {
		return nil, fmt.Errorf("resolve head revision %s: %w", head, err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees %s...%s: %w", base, head, err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, change := range changes {
		for _, path := range []string{change.From.Name, change.To.Name} {
			if path == "" {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			out = append(out, path)
		}
	}
	return out, nil
}

// ShowFileAtRevision returns the contents of path as it exists at ref,
// the native equivalent of `git show ref:path`.
func (r *Repo) ShowFileAtRevision(ref, path string) ([]byte, error) {
	tree, err := r.treeForRevision(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", ref, err)
	}
	f, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("find %s at %s: %w", path, ref, err)
	}
	rc, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("open blob reader for %s at %s: %w", path, ref, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Repo) treeForRevision(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}
