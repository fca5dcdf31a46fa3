package vcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHub opens pull requests through the GitHub REST API.
type GitHub struct {
	client *github.Client
}

// NewGitHub builds a token-authenticated publisher.
func NewGitHub(ctx context.Context, token string) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("github token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &GitHub{client: github.NewClient(tc)}, nil
}

// NewGitHubWithClient wraps an existing API client, used by tests.
func NewGitHubWithClient(client *github.Client) *GitHub {
	return &GitHub{client: client}
}

// Publish opens a pull request and returns its URL.
func (g *GitHub) Publish(ctx context.Context, repoURL string, pr PullRequest) (string, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return "", err
	}
	base := pr.Base
	if base == "" {
		base = "main"
	}
	created, _, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.Head),
		Base:  github.String(base),
		Body:  github.String(pr.Body),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	return created.GetHTMLURL(), nil
}

// ParseOwnerRepo extracts owner and repository name from an https or ssh
// GitHub remote URL.
func ParseOwnerRepo(repoURL string) (string, string, error) {
	path := ""
	switch {
	case strings.HasPrefix(repoURL, "git@"):
		// git@github.com:owner/repo.git
		if idx := strings.Index(repoURL, ":"); idx != -1 {
			path = repoURL[idx+1:]
		}
	default:
		u, err := url.Parse(repoURL)
		if err != nil {
			return "", "", fmt.Errorf("parsing repository URL %q: %w", repoURL, err)
		}
		path = strings.TrimPrefix(u.Path, "/")
	}

	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository URL %q has no owner/name", repoURL)
	}
	return parts[0], parts[1], nil
}
