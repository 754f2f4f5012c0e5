package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/config"
	"github.com/xxxsen/cvagent/internal/console"
	"github.com/xxxsen/cvagent/internal/handler"
	"github.com/xxxsen/cvagent/internal/job"
	"github.com/xxxsen/cvagent/internal/middleware"
	"github.com/xxxsen/cvagent/internal/schedule"
)

func main() {
	var configPath string
	var threadID string

	rootCmd := &cobra.Command{
		Use:           "cvagent",
		Short:         "answer questions about a résumé",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "ask questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if threadID == "" {
				threadID = cfg.Agent.ThreadID
			}
			return runChat(cmd.Context(), cfg, threadID)
		},
	}
	chatCmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the chat http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	chunksCmd := &cobra.Command{
		Use:   "chunks",
		Short: "print the chunk plan of the configured document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runChunks(cmd.Context(), cfg)
		},
	}

	var subject, clientName string
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an api token for a client subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			token, err := mintToken(cfg, subject, clientName, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "", "client subject; scopes its conversation threads")
	tokenCmd.Flags().StringVar(&clientName, "name", "", "client display name")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(chatCmd, serveCmd, chunksCmd, tokenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	// .env is optional; it only seeds variables referenced as ${VAR} in the config.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runChat(ctx context.Context, cfg *config.Config, threadID string) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	if err := a.service.Bootstrap(ctx); err != nil {
		return err
	}
	return console.Run(ctx, os.Stdin, os.Stdout, a.service, console.Options{ThreadID: threadID})
}

func runChunks(ctx context.Context, cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	chunks, doc, err := a.service.Plan(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d runes, %d chunks\n", doc.Source, doc.Len(), len(chunks))
	for _, c := range chunks {
		fmt.Printf("#%d [%d,%d) %s\n", c.Meta.Position, c.Meta.Start, c.Meta.End, c.ID)
	}
	return nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	if err := a.service.Bootstrap(ctx); err != nil {
		return err
	}

	if cfg.Memory.IdleTTLMinutes > 0 {
		scheduler := schedule.NewCronScheduler()
		ttl := time.Duration(cfg.Memory.IdleTTLMinutes) * time.Minute
		if err := scheduler.AddJob(job.NewMemoryEvictionJob(a.memory, ttl), cfg.Memory.SweepSpec); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	deps := handler.RouterDeps{
		Chat:         handler.NewChatHandler(a.service, cfg.Agent.ThreadID),
		JWTSecret:    []byte(cfg.Server.JWTSecret),
		TurnInterval: time.Duration(cfg.Server.TurnIntervalMs) * time.Millisecond,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.Server.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	return serveUntil(ctx, engine.Run)
}

// serveUntil runs the server until ctx is done; a failed start is returned.
func serveUntil(ctx context.Context, run func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- run()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logutil.GetLogger(context.Background()).Info("server stopping...")
		return nil
	}
}
