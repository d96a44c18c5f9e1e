package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jadenj13/opsagent/internals/agent"
	"github.com/jadenj13/opsagent/internals/chat"
	"github.com/jadenj13/opsagent/internals/config"
	"github.com/jadenj13/opsagent/internals/git"
	"github.com/jadenj13/opsagent/internals/llm"
	"github.com/jadenj13/opsagent/internals/notify"
	"github.com/jadenj13/opsagent/internals/router"
	"github.com/jadenj13/opsagent/internals/server"
	"github.com/jadenj13/opsagent/internals/store"
	"github.com/jadenj13/opsagent/internals/toolbox"
)

var log *slog.Logger

func main() {
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := &cobra.Command{
		Use:   "opsagent",
		Short: "Chat agent that routes messages to DevOps tools",
		Long:  "opsagent answers chat messages by running at most one tool per turn (file, shell, GitHub/GitLab) and summarizing the result with an LLM.",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API with SSE streaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			mustSet(cfg.AnthropicKey, "ANTHROPIC_API_KEY")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := &http.Server{
				Addr:    cfg.Addr,
				Handler: server.New(pipeline, st, log).Handler(),
				// No write timeout: /agent/stream holds the response open.
				ReadTimeout: 10 * time.Second,
			}

			go func() {
				log.Info("agent listening", "addr", cfg.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("server error", "err", err)
					os.Exit(1)
				}
			}()

			<-ctx.Done()
			log.Info("shutting down")

			shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			mustSet(cfg.AnthropicKey, "ANTHROPIC_API_KEY")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}

			var history []chat.Message
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("\x1b[94mYou\x1b[0m: ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				history = append(history, chat.User(line))
				final := pipeline.Run(ctx, chat.State{Messages: history})
				for _, m := range final.Messages[len(history):] {
					fmt.Printf("\x1b[93mAgent\x1b[0m: %s\n", m.Content)
				}
				history = final.Messages
			}
		},
	}
}

func buildPipeline(ctx context.Context, cfg config.Config) (*agent.Pipeline, error) {
	platform, err := git.ParsePlatform(cfg.Platform)
	if err != nil {
		return nil, err
	}

	var scm git.Provider
	factory := git.NewFactory(cfg.GitHubToken, cfg.GitLabToken,
		git.WithGitLabBaseURL(cfg.GitLabBaseURL))
	scm, err = factory.Provider(ctx, platform)
	if err != nil {
		log.Warn("source-control tool disabled", "err", err)
		scm = nil
	}

	exec, err := toolbox.New(toolbox.Config{
		ProjectRoot:  cfg.ProjectRoot,
		ShellTimeout: cfg.ShellTimeout,
		DefaultOwner: cfg.DefaultOwner,
		DefaultRepo:  cfg.DefaultRepo,
		TestCommand:  cfg.TestCommand,
		LintCommand:  cfg.LintCommand,
	}, scm, log)
	if err != nil {
		return nil, err
	}

	rt := router.New(router.Config{
		DefaultOwner: cfg.DefaultOwner,
		DefaultRepo:  cfg.DefaultRepo,
	})

	var opts []agent.Option
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		opts = append(opts, agent.WithNotifier(
			notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID)))
	}

	return agent.New(rt, exec, llm.NewClient(cfg.AnthropicKey), log, opts...), nil
}

func mustSet(value, key string) {
	if value == "" {
		log.Error("missing required env var", "key", key)
		os.Exit(1)
	}
}
