// komandan
package main

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ###################################
//      MODULE: git_sync
// ###################################

// GitSyncModule makes a fresh shallow clone of a repository into a local scratch
// directory with go-git, then ships the resulting working tree to the
// target's destination path via the executor's Upload. There is no
// original_source equivalent; this module is a SPEC_FULL.md enrichment
// that puts go-git to work the way a deployment-oriented komandan would.
type GitSyncModule struct {
	scratchDir string
}

func (m *GitSyncModule) Name() string { return "git_sync" }

func (m *GitSyncModule) Validate(params map[string]any) error {
	if _, err := paramString(params, "repo"); err != nil {
		return err
	}
	_, err := paramString(params, "dst")
	return err
}

func (m *GitSyncModule) syncLocal(params map[string]any) (changed bool, err error) {
	repo, err := paramString(params, "repo")
	if err != nil {
		return false, err
	}
	ref := paramStringOpt(params, "ref", "")

	m.scratchDir, err = os.MkdirTemp("", "komandan-git-sync-*")
	if err != nil {
		return false, fmt.Errorf("failed to create scratch directory: %v", err)
	}

	cloneOpts := &git.CloneOptions{URL: repo, Depth: 1}
	if ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	if _, err = git.PlainClone(m.scratchDir, false, cloneOpts); err != nil {
		return false, fmt.Errorf("failed to clone repository: %v", err)
	}

	return true, nil
}

func (m *GitSyncModule) Run(exec Executor, params map[string]any) (*ExecResult, error) {
	dst, err := paramString(params, "dst")
	if err != nil {
		return nil, err
	}

	if _, err = m.syncLocal(params); err != nil {
		return nil, err
	}
	defer os.RemoveAll(m.scratchDir)

	if err = exec.Upload(m.scratchDir, dst); err != nil {
		return nil, err
	}

	exec.SetChanged(true)
	result := exec.Result()
	return &result, nil
}

func (m *GitSyncModule) Cleanup(exec Executor, params map[string]any) error {
	if m.scratchDir != "" {
		return os.RemoveAll(m.scratchDir)
	}
	return nil
}
