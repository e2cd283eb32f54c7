// Package gitinfo resolves the source revision a site is built from, so
// templates and logs can stamp output with it. Resolution is best effort:
// building outside a repository is normal and reported with a sentinel the
// caller can downgrade to "no revision".
package gitinfo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNoRepository marks directories that are not inside a git repository.
var ErrNoRepository = errors.New("no git repository found")

// Info describes the repository HEAD at build time.
type Info struct {
	Commit string // full commit hash
	Short  string // abbreviated hash
	Branch string // branch name, empty when HEAD is detached
}

// Describe returns the short human form, "abc1234" or "abc1234 (main)".
func (i Info) Describe() string {
	if i.Short == "" {
		return ""
	}
	if i.Branch == "" {
		return i.Short
	}
	return fmt.Sprintf("%s (%s)", i.Short, i.Branch)
}

// Resolve returns HEAD info for the repository containing dir. The .git
// directory is detected upwards from dir, so resolving from a project
// subdirectory works.
func Resolve(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Info{}, fmt.Errorf("%w: %s", ErrNoRepository, dir)
		}
		return Info{}, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Info{}, fmt.Errorf("resolve HEAD at %s: %w", dir, err)
	}

	info := Info{Commit: head.Hash().String()}
	if len(info.Commit) >= 7 {
		info.Short = info.Commit[:7]
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}
