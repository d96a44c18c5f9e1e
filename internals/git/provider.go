package git

import (
	"context"
	"errors"

	"github.com/google/go-github/v60/github"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// pageSize is the listing page size. Listing stops as soon as a page comes
// back shorter than this, so every entry is collected exactly once.
const pageSize = 100

// Provider is the source-control boundary: structured action in, typed value
// or error out. Both the GitHub and GitLab clients implement it; the tool
// executor converts errors into result payloads and never lets them escape
// the turn.
type Provider interface {
	ListRepos(ctx context.Context) ([]RepoSummary, error)
	CreateRepo(ctx context.Context, name, description string, private bool) (RepoSummary, error)
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
	UpdateFile(ctx context.Context, input FileUpdate) (Commit, error)
	CreateBranchFrom(ctx context.Context, owner, repo, branch, from string) error
	CreatePR(ctx context.Context, input PRInput) (PR, error)
	ListBranches(ctx context.Context, owner, repo string) ([]string, error)
}

type RepoSummary struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
}

type FileUpdate struct {
	Owner   string
	Repo    string
	Path    string
	Content string
	Message string
}

type Commit struct {
	SHA    string `json:"sha"`
	Branch string `json:"branch"`
}

type PRInput struct {
	Owner string
	Repo  string
	Head  string
	Base  string
	Title string
	Body  string
}

type PR struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

type Platform int

const (
	PlatformGitHub Platform = iota
	PlatformGitLab
)

func (p Platform) String() string {
	switch p {
	case PlatformGitHub:
		return "github"
	case PlatformGitLab:
		return "gitlab"
	default:
		return "unknown"
	}
}

// StatusCode pulls the HTTP status out of either SDK's error type, or 0 when
// the error never reached the remote (network failure, bad input).
func StatusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	var glErr *gitlab.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil {
		return glErr.Response.StatusCode
	}
	return 0
}
