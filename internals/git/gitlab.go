package git

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type GitLab struct {
	gl *gitlab.Client
}

func NewGitLab(token, baseURL string) (*GitLab, error) {
	gl, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &GitLab{gl: gl}, nil
}

func pid(owner, repo string) string { return owner + "/" + repo }

func (g *GitLab) ListRepos(ctx context.Context) ([]RepoSummary, error) {
	var out []RepoSummary
	opts := &gitlab.ListProjectsOptions{
		Membership:  gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{PerPage: pageSize, Page: 1},
	}
	for {
		projects, _, err := g.gl.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab list projects: %w", err)
		}
		for _, p := range projects {
			out = append(out, RepoSummary{
				Name:     p.Name,
				FullName: p.PathWithNamespace,
				Private:  p.Visibility == gitlab.PrivateVisibility,
				HTMLURL:  p.WebURL,
			})
		}
		if len(projects) < pageSize {
			return out, nil
		}
		opts.Page++
	}
}

func (g *GitLab) CreateRepo(ctx context.Context, name, description string, private bool) (RepoSummary, error) {
	visibility := gitlab.PublicVisibility
	if private {
		visibility = gitlab.PrivateVisibility
	}
	p, _, err := g.gl.Projects.CreateProject(&gitlab.CreateProjectOptions{
		Name:        gitlab.Ptr(name),
		Description: gitlab.Ptr(description),
		Visibility:  gitlab.Ptr(visibility),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return RepoSummary{}, fmt.Errorf("gitlab create project: %w", err)
	}
	return RepoSummary{
		Name:     p.Name,
		FullName: p.PathWithNamespace,
		Private:  p.Visibility == gitlab.PrivateVisibility,
		HTMLURL:  p.WebURL,
	}, nil
}

func (g *GitLab) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	p, _, err := g.gl.Projects.GetProject(pid(owner, repo), nil, gitlab.WithContext(ctx))
	if err != nil {
		return "main", fmt.Errorf("gitlab get project: %w", err)
	}
	if p.DefaultBranch != "" {
		return p.DefaultBranch, nil
	}
	return "main", nil
}

func (g *GitLab) UpdateFile(ctx context.Context, input FileUpdate) (Commit, error) {
	project := pid(input.Owner, input.Repo)
	branch, _ := g.DefaultBranch(ctx, input.Owner, input.Repo)

	_, _, err := g.gl.RepositoryFiles.GetFile(project, input.Path,
		&gitlab.GetFileOptions{Ref: gitlab.Ptr(branch)}, gitlab.WithContext(ctx))

	var info *gitlab.FileInfo
	if err == nil {
		info, _, err = g.gl.RepositoryFiles.UpdateFile(project, input.Path, &gitlab.UpdateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(input.Content),
			CommitMessage: gitlab.Ptr(input.Message),
		}, gitlab.WithContext(ctx))
	} else {
		info, _, err = g.gl.RepositoryFiles.CreateFile(project, input.Path, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(input.Content),
			CommitMessage: gitlab.Ptr(input.Message),
		}, gitlab.WithContext(ctx))
	}
	if err != nil {
		return Commit{}, fmt.Errorf("gitlab update file: %w", err)
	}
	// The files API reports the branch it committed to but not the commit SHA.
	return Commit{Branch: info.Branch}, nil
}

func (g *GitLab) CreateBranchFrom(ctx context.Context, owner, repo, branch, from string) error {
	_, _, err := g.gl.Branches.CreateBranch(pid(owner, repo), &gitlab.CreateBranchOptions{
		Branch: gitlab.Ptr(branch),
		Ref:    gitlab.Ptr(from),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("gitlab create branch %s: %w", branch, err)
	}
	return nil
}

func (g *GitLab) CreatePR(ctx context.Context, input PRInput) (PR, error) {
	mr, _, err := g.gl.MergeRequests.CreateMergeRequest(pid(input.Owner, input.Repo), &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(input.Title),
		Description:  gitlab.Ptr(input.Body),
		SourceBranch: gitlab.Ptr(input.Head),
		TargetBranch: gitlab.Ptr(input.Base),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return PR{}, fmt.Errorf("gitlab create merge request: %w", err)
	}
	return PR{Number: int(mr.IID), URL: mr.WebURL}, nil
}

func (g *GitLab) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	branches, _, err := g.gl.Branches.ListBranches(pid(owner, repo),
		&gitlab.ListBranchesOptions{ListOptions: gitlab.ListOptions{PerPage: pageSize}},
		gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("gitlab list branches: %w", err)
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	return names, nil
}
