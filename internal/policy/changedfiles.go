package policy

import "github.com/cmas-os/swarmctl/internal/vcs"

// ChangedFilesWorkingTree lists the paths policy-guard should check in
// working-tree mode.
func ChangedFilesWorkingTree(repoPath string) ([]string, error) {
	repo, err := vcs.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return repo.WorkingTreeChangedFiles()
}

// ChangedFilesDiff lists the paths policy-guard should check in diff
// mode, between base and head revisions.
func ChangedFilesDiff(repoPath, base, head string) ([]string, error) {
	repo, err := vcs.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return repo.DiffNameOnly(base, head)
}
