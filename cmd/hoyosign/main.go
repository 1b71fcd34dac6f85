package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/copyleftdev/hoyosign/internal/config"
	"github.com/copyleftdev/hoyosign/internal/games"
	"github.com/copyleftdev/hoyosign/internal/push"
	"github.com/copyleftdev/hoyosign/internal/retry"
	"github.com/copyleftdev/hoyosign/internal/server"
	"github.com/copyleftdev/hoyosign/internal/tasks"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
	"github.com/copyleftdev/hoyosign/internal/verify"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml in search paths)")
	serve := flag.Bool("serve", false, "keep running and expose the HTTP trigger API instead of running once")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if len(cfg.Accounts) == 0 {
		logger.Fatal("no accounts configured")
	}
	accounts := buildAccounts(cfg.Accounts)

	client, err := games.NewClient(cfg.Run.Timeout, logger.Named("games"))
	if err != nil {
		logger.Fatal("failed to build game client", zap.Error(err))
	}
	registry := games.NewRegistry()
	games.RegisterAll(registry, client, logger.Named("games"))

	verifier := verify.NewClient(cfg.Geetest, cfg.Run.Timeout, logger.Named("verify"))
	policy := retry.Policy{MaxRetries: cfg.Run.MaxRetries, Cooldown: cfg.Run.RetryInterval}
	executor := tasks.NewExecutor(registry, verifier, policy, logger.Named("tasks"))
	orchestrator := tasks.NewOrchestrator(executor, cfg.Run.SleepTime, cfg.Run.MaxConcurrentAccounts, logger.Named("tasks"))
	notifier := push.NewNotifier(cfg.Push, cfg.Run.Timeout, logger.Named("push"))

	runOnce := func(ctx context.Context) (*taskstypes.Report, []push.Delivery) {
		report := orchestrator.Run(ctx, accounts)
		// Push even on a cancelled run: partial progress is still worth
		// reporting.
		deliveries := notifier.Notify(context.Background(), report)
		return report, deliveries
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		srv := server.NewServer(cfg, runOnce, logger.Named("server"))
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", zap.Error(err))
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	report, deliveries := runOnce(ctx)
	for _, d := range deliveries {
		if !d.OK {
			logger.Warn("notification channel failed",
				zap.String("channel", d.Channel),
				zap.String("error", d.Error),
			)
		}
	}

	// Individual task failures are reported, not fatal: a partially-failed
	// run still exits zero.
	logger.Info("done",
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("skipped", report.Summary.Skipped),
	)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func buildAccounts(entries []config.AccountConfig) []*taskstypes.Account {
	accounts := make([]*taskstypes.Account, 0, len(entries))
	for _, entry := range entries {
		deviceID := entry.DeviceID
		if deviceID == "" {
			deviceID = games.GenerateDeviceID()
		}

		gameIDs := make([]taskstypes.GameID, 0, len(entry.Games))
		for _, g := range entry.Games {
			gameIDs = append(gameIDs, taskstypes.GameID(g))
		}
		kinds := make([]taskstypes.TaskKind, 0, len(entry.Tasks))
		for _, t := range entry.Tasks {
			kinds = append(kinds, taskstypes.TaskKind(t))
		}

		accounts = append(accounts, &taskstypes.Account{
			ID:       entry.ID,
			Cookie:   entry.Cookie,
			SToken:   entry.SToken,
			DeviceID: deviceID,
			Platform: entry.Platform,
			Games:    gameIDs,
			Kinds:    kinds,
		})
	}
	return accounts
}
