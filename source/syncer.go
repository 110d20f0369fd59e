// Package source resets a deployment target's working tree to a requested
// git reference, destructively.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/shipwaylabs/shipway"
)

// Reference namespaces for resolution and error reporting.
const (
	NamespaceTag    = "tag"
	NamespaceCommit = "commit"
)

// Syncer synchronizes working trees through git commands issued over a
// Runner.
type Syncer struct {
	runner shipway.Runner
}

// NewSyncer creates a Syncer executing on r.
func NewSyncer(r shipway.Runner) *Syncer {
	return &Syncer{runner: r}
}

// Sync resets the working tree at path to exactly match ref.
//
// The reference is resolved in the tag namespace when useTagNamespace is
// set, otherwise as a commit or branch (local first, then origin). A
// reference that does not resolve locally is fetched once and re-resolved.
// The reset discards all local modifications and untracked files; this is
// explicitly not a merge. Ignored files survive.
//
// Returns *shipway.RepositoryStateError when path is not an initialized
// repository and *shipway.ReferenceNotFoundError when ref cannot be resolved
// after the fetch.
func (s *Syncer) Sync(ctx context.Context, path, ref string, useTagNamespace bool) error {
	if err := s.verifyRepository(ctx, path); err != nil {
		return err
	}

	sha, ok, err := s.resolve(ctx, path, ref, useTagNamespace)
	if err != nil {
		return err
	}

	if !ok {
		if err := s.fetch(ctx, path, ref, useTagNamespace); err != nil {
			return err
		}

		sha, ok, err = s.resolve(ctx, path, ref, useTagNamespace)
		if err != nil {
			return err
		}
	}

	if !ok {
		namespace := NamespaceCommit
		if useTagNamespace {
			namespace = NamespaceTag
		}

		return &shipway.ReferenceNotFoundError{Reference: ref, Namespace: namespace}
	}

	return s.reset(ctx, path, sha)
}

func (s *Syncer) verifyRepository(ctx context.Context, path string) error {
	res, err := shipway.RunCapture(ctx, s.runner, gitCommand(path, "rev-parse", "--git-dir"))
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &shipway.RepositoryStateError{
			Path:   path,
			Detail: strings.TrimSpace(string(res.Stderr)),
		}
	}

	return nil
}

// resolve maps ref to a commit SHA in the selected namespace. ok is false
// when the reference does not exist; errors are transport-level only.
func (s *Syncer) resolve(ctx context.Context, path, ref string, useTagNamespace bool) (string, bool, error) {
	if useTagNamespace {
		return s.revParse(ctx, path, "refs/tags/"+ref+"^{commit}")
	}

	sha, ok, err := s.revParse(ctx, path, ref+"^{commit}")
	if err != nil || ok {
		return sha, ok, err
	}

	// Branch names that only exist on the remote.
	return s.revParse(ctx, path, "refs/remotes/origin/"+ref+"^{commit}")
}

func (s *Syncer) revParse(ctx context.Context, path, spec string) (string, bool, error) {
	res, err := shipway.RunCapture(ctx, s.runner, gitCommand(path, "rev-parse", "--verify", "--quiet", spec))
	if err != nil {
		return "", false, err
	}

	if res.ExitCode != 0 {
		return "", false, nil
	}

	return strings.TrimSpace(string(res.Stdout)), true, nil
}

// fetch pulls the missing reference from origin. A failing fetch is soft:
// re-resolution decides whether the reference exists.
func (s *Syncer) fetch(ctx context.Context, path, ref string, useTagNamespace bool) error {
	var cmd *shipway.Command
	if useTagNamespace {
		refspec := fmt.Sprintf("+refs/tags/%s:refs/tags/%s", ref, ref)
		cmd = gitCommand(path, "fetch", "origin", refspec)
	} else {
		cmd = gitCommand(path, "fetch", "origin")
	}

	_, err := shipway.RunCapture(ctx, s.runner, cmd)

	return err
}

func (s *Syncer) reset(ctx context.Context, path, sha string) error {
	if _, err := shipway.RunCheck(ctx, s.runner, gitCommand(path, "reset", "--hard", sha)); err != nil {
		return err
	}

	// Untracked files and directories go too. Ignored files (runtime
	// secrets, local overrides) survive for the materializer to preserve.
	_, err := shipway.RunCheck(ctx, s.runner, gitCommand(path, "clean", "-fd"))

	return err
}

// gitCommand builds a git invocation pinned to the tree at path. Using -C
// instead of the command working directory keeps failure modes identical
// across channels when path is missing.
func gitCommand(path string, args ...string) *shipway.Command {
	cmd := shipway.NewCommand("git", append([]string{"-C", path}, args...)...)
	cmd.Env = []string{"GIT_TERMINAL_PROMPT=0"}

	return cmd
}
