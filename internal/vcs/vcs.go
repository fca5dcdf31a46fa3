// Package vcs handles the git and GitHub side of a run: cloning, branch
// creation, committing applied changes, pushing, and opening pull requests.
package vcs

import "context"

// Control is what the pipeline engine needs from a git implementation.
// Cloning is exposed separately through sandbox.Cloner so environment
// providers can stage workspaces without pulling in the rest.
type Control interface {
	CreateBranch(dir, name string) error
	Commit(dir, message string) (string, error)
	Push(ctx context.Context, dir, branch, token string) error
}

// PullRequest describes a pull request to open against a repository's base
// branch.
type PullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// Publisher opens pull requests on a hosting service.
type Publisher interface {
	Publish(ctx context.Context, repoURL string, pr PullRequest) (string, error)
}
