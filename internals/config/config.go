package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config collects every environment-sourced setting in one place. Required
// values are validated by the command layer, not here.
type Config struct {
	Addr string

	AnthropicKey string

	Platform      string // "github" (default) or "gitlab"
	GitHubToken   string
	GitLabToken   string
	GitLabBaseURL string
	DefaultOwner  string
	DefaultRepo   string

	ProjectRoot  string
	DBPath       string
	ShellTimeout time.Duration
	TestCommand  string
	LintCommand  string

	SlackBotToken  string
	SlackChannelID string
}

func FromEnv() Config {
	return Config{
		Addr:           envOr("AGENT_ADDR", ":8080"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		Platform:       envOr("GIT_PLATFORM", "github"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		GitLabToken:    os.Getenv("GITLAB_TOKEN"),
		GitLabBaseURL:  envOr("GITLAB_BASE_URL", "https://gitlab.com"),
		DefaultOwner:   os.Getenv("GITHUB_OWNER"),
		DefaultRepo:    os.Getenv("GITHUB_REPO"),
		ProjectRoot:    envOr("AGENT_PROJECT_ROOT", "."),
		DBPath:         envOr("AGENT_DB_PATH", defaultDBPath()),
		ShellTimeout:   time.Duration(envIntOr("SHELL_TIMEOUT_SECONDS", 20)) * time.Second,
		TestCommand:    os.Getenv("REPO_TEST_CMD"),
		LintCommand:    os.Getenv("REPO_LINT_CMD"),
		SlackBotToken:  os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannelID: os.Getenv("SLACK_CHANNEL_ID"),
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "opsagent.db"
	}
	return filepath.Join(home, ".opsagent", "chats.db")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
