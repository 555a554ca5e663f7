// Command taskmcp runs the taskmcp server.
//
// It partitions a unit of engineering work into a dependency graph of
// tasks, hands them out to concurrent workers in isolated git worktrees,
// and merges completed work back to trunk. The core server runs on
// stdio using JSON-RPC 2.0 (MCP protocol); this is the default and only
// operationally required mode.
//
// Optional environment variables (see internal/config for the complete
// list and the config file search order):
//
//	TASK_DB_PATH          - sqlite database path (default: .tasks/tasks.db)
//	TASKMCP_GIT_REPO_ROOT - repository root to coordinate (default: .)
//	TASKMCP_GIT_TRUNK     - trunk branch name (default: main)
//	TASKMCP_TRANSPORT     - "stdio" (default) or "http"
//	TASKMCP_LOG_LEVEL     - debug, info, warn, error (default: info)
package main

import (
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

	"github.com/taskmcp/taskmcp/internal/config"
	"github.com/taskmcp/taskmcp/internal/content"
	"github.com/taskmcp/taskmcp/internal/gitdriver"
	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/scheduler"
	"github.com/taskmcp/taskmcp/internal/store"
	"github.com/taskmcp/taskmcp/internal/taskservice"
	"github.com/taskmcp/taskmcp/internal/tools/janitor"
	"github.com/taskmcp/taskmcp/internal/tools/tasks"
)

// Version is set via ldflags at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "taskmcp",
	Short:   "taskmcp coordinates a dependency graph of tasks across concurrent git worktrees",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to taskmcp.toml (overrides search order)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "taskmcp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	version := cfg.Server.Version
	if Version != "dev" {
		version = Version
	}
	logger.Info("starting taskmcp", "version", version, "repo_root", cfg.Git.RepoRoot, "trunk", cfg.Git.Trunk)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	git := gitdriver.New(cfg.Git.RepoRoot)
	svc := taskservice.New(st, git, cfg.Git.Trunk, logger)

	registry := mcp.NewRegistry()
	registry.Register(tasks.NewCreateTasks(svc))
	registry.Register(tasks.NewListTasks(svc))
	registry.Register(tasks.NewGetTask(svc))
	registry.Register(tasks.NewClaimTask(svc))
	registry.Register(tasks.NewStartTask(svc))
	registry.Register(tasks.NewUpdateProgress(svc))
	registry.Register(tasks.NewCompleteTask(svc))
	registry.Register(tasks.NewMergeTask(svc))
	registry.Register(tasks.NewCleanupTask(svc))

	registry.RegisterPrompt(&content.WorkflowPrompt{})
	registry.RegisterResource(&content.StateMachineResource{})
	registry.RegisterResource(&content.ToolReferenceResource{})

	server := mcp.NewServer(registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: version,
	}, logger)

	if cfg.Janitor.Enabled {
		sched := scheduler.NewScheduler(logger)
		pruneJob := janitor.NewPruneJob(git, logger)
		spec := fmt.Sprintf("@every %dm", cfg.Janitor.IntervalMinutes)
		if err := sched.Every(spec, "worktree-prune", pruneJob.Run); err != nil {
			return fmt.Errorf("scheduling janitor: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	switch cfg.Transport.Mode {
	case "http":
		return runHTTP(ctx, cfg, server, logger)
	default:
		return server.Run(ctx)
	}
}

func runHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server, logger *slog.Logger) error {
	httpServer := mcp.NewHTTPServer(server, cfg.Transport.CORSOrigins, cfg.Transport.AuthToken, logger)

	addr := cfg.Transport.Host + ":" + cfg.Transport.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: httpServer.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
