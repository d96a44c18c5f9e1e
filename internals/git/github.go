package git

import (
	"context"
	"fmt"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

type GitHub struct {
	gh *github.Client
}

func NewGitHub(ctx context.Context, token string) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHub{gh: github.NewClient(oauth2.NewClient(ctx, ts))}
}

// ListRepos lists every repository visible to the authenticated user,
// private included, walking pages until a short page terminates the loop.
func (g *GitHub) ListRepos(ctx context.Context) ([]RepoSummary, error) {
	var out []RepoSummary
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: pageSize, Page: 1},
	}
	for {
		repos, _, err := g.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("github list repos: %w", err)
		}
		for _, r := range repos {
			out = append(out, RepoSummary{
				Name:     r.GetName(),
				FullName: r.GetFullName(),
				Private:  r.GetPrivate(),
				HTMLURL:  r.GetHTMLURL(),
			})
		}
		if len(repos) < pageSize {
			return out, nil
		}
		opts.Page++
	}
}

func (g *GitHub) CreateRepo(ctx context.Context, name, description string, private bool) (RepoSummary, error) {
	repo, _, err := g.gh.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
	})
	if err != nil {
		return RepoSummary{}, fmt.Errorf("github create repo: %w", err)
	}
	return RepoSummary{
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
		Private:  repo.GetPrivate(),
		HTMLURL:  repo.GetHTMLURL(),
	}, nil
}

// DefaultBranch resolves the repository's primary branch, falling back to
// "main" when the lookup fails. Mirrors how the callers treat the default as
// advisory rather than fatal.
func (g *GitHub) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := g.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "main", fmt.Errorf("github get repo: %w", err)
	}
	if b := r.GetDefaultBranch(); b != "" {
		return b, nil
	}
	return "main", nil
}

// UpdateFile writes content to a path on the default branch, fetching any
// existing blob SHA first so the call updates in place instead of failing on
// an existing file.
func (g *GitHub) UpdateFile(ctx context.Context, input FileUpdate) (Commit, error) {
	branch, _ := g.DefaultBranch(ctx, input.Owner, input.Repo)

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(input.Message),
		Content: []byte(input.Content),
		Branch:  github.String(branch),
	}

	existing, _, _, err := g.gh.Repositories.GetContents(ctx, input.Owner, input.Repo, input.Path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err == nil && existing != nil {
		opts.SHA = github.String(existing.GetSHA())
	}

	var resp *github.RepositoryContentResponse
	if opts.SHA != nil {
		resp, _, err = g.gh.Repositories.UpdateFile(ctx, input.Owner, input.Repo, input.Path, opts)
	} else {
		resp, _, err = g.gh.Repositories.CreateFile(ctx, input.Owner, input.Repo, input.Path, opts)
	}
	if err != nil {
		return Commit{}, fmt.Errorf("github update file: %w", err)
	}
	return Commit{SHA: resp.Commit.GetSHA(), Branch: branch}, nil
}

func (g *GitHub) CreateBranchFrom(ctx context.Context, owner, repo, branch, from string) error {
	ref, _, err := g.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+from)
	if err != nil {
		return fmt.Errorf("github get ref %s: %w", from, err)
	}
	_, _, err = g.gh.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: ref.Object.SHA},
	})
	if err != nil {
		return fmt.Errorf("github create ref %s: %w", branch, err)
	}
	return nil
}

func (g *GitHub) CreatePR(ctx context.Context, input PRInput) (PR, error) {
	pr, _, err := g.gh.PullRequests.Create(ctx, input.Owner, input.Repo, &github.NewPullRequest{
		Title: github.String(input.Title),
		Head:  github.String(input.Head),
		Base:  github.String(input.Base),
		Body:  github.String(input.Body),
	})
	if err != nil {
		return PR{}, fmt.Errorf("github create pr: %w", err)
	}
	return PR{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

func (g *GitHub) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	branches, _, err := g.gh.Repositories.ListBranches(ctx, owner, repo, &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: pageSize},
	})
	if err != nil {
		return nil, fmt.Errorf("github list branches: %w", err)
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.GetName())
	}
	return names, nil
}
