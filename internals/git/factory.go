package git

import (
	"context"
	"fmt"
	"strings"
)

// Factory builds the Provider for the configured platform. Tokens for both
// platforms can be supplied; only the selected one is required.
type Factory struct {
	githubToken   string
	gitlabToken   string
	gitlabBaseURL string
}

type FactoryOption func(*Factory)

func WithGitLabBaseURL(baseURL string) FactoryOption {
	return func(f *Factory) { f.gitlabBaseURL = baseURL }
}

func NewFactory(githubToken, gitlabToken string, opts ...FactoryOption) *Factory {
	f := &Factory{
		githubToken:   githubToken,
		gitlabToken:   gitlabToken,
		gitlabBaseURL: "https://gitlab.com",
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Factory) Provider(ctx context.Context, platform Platform) (Provider, error) {
	switch platform {
	case PlatformGitHub:
		if f.githubToken == "" {
			return nil, fmt.Errorf("no GitHub token configured")
		}
		return NewGitHub(ctx, f.githubToken), nil

	case PlatformGitLab:
		if f.gitlabToken == "" {
			return nil, fmt.Errorf("no GitLab token configured")
		}
		return NewGitLab(f.gitlabToken, f.gitlabBaseURL)
	}
	return nil, fmt.Errorf("unsupported platform: %s", platform)
}

func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "github":
		return PlatformGitHub, nil
	case "gitlab":
		return PlatformGitLab, nil
	default:
		return 0, fmt.Errorf("unknown platform %q, expected github or gitlab", s)
	}
}
