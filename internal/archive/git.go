// Package archive deals with the versioned dump repository: enumerating its
// revisions, switching the working tree between them, and resolving the
// snapshot date each revision carries in its commit message.
package archive

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Revision is one addressable historical version of the archive tree.
type Revision struct {
	Hash    string
	Subject string
}

// Repo is the narrow surface of the archive's version control the loader
// depends on. Implementations other than git only need these three
// operations, and tests fake the whole thing.
type Repo interface {
	// Revisions lists all revisions oldest-first.
	Revisions(ctx context.Context) ([]Revision, error)
	// Checkout force-switches the working tree to a revision, discarding
	// any local modifications.
	Checkout(ctx context.Context, hash string) error
	// Message returns the full commit message of a revision.
	Message(ctx context.Context, hash string) (string, error)
}

// GitRepo runs the git CLI against a local clone of the archive.
type GitRepo struct {
	Dir    string
	Branch string
}

// NewGitRepo returns a GitRepo over the clone at dir, tracking master.
func NewGitRepo(dir string) *GitRepo {
	return &GitRepo{Dir: dir, Branch: "master"}
}

func (g *GitRepo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.Dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Revisions lists the branch history oldest-first, one hash and subject per
// revision.
func (g *GitRepo) Revisions(ctx context.Context) ([]Revision, error) {
	out, err := g.git(ctx, "log", "--reverse", "--pretty=%H%x09%s", g.Branch)
	if err != nil {
		return nil, err
	}
	var revs []Revision
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, subject, _ := strings.Cut(line, "\t")
		revs = append(revs, Revision{Hash: hash, Subject: subject})
	}
	return revs, nil
}

// Checkout force-switches the working tree to hash. Local modifications are
// discarded; callers must not keep unsaved changes in the archive tree.
func (g *GitRepo) Checkout(ctx context.Context, hash string) error {
	_, err := g.git(ctx, "checkout", "-f", hash)
	return err
}

// Message returns the full commit message of hash. "HEAD" resolves the
// currently checked-out revision.
func (g *GitRepo) Message(ctx context.Context, hash string) (string, error) {
	return g.git(ctx, "log", "-1", "--pretty=%B", hash)
}
