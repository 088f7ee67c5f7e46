package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/pkg/config"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/gateway"
	"github.com/Lawliet-Chan/offchain-storage/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const usage = `offchain-storage - permissioned off-chain payload gateway

Usage:
  offchaind <command> [flags]

Commands:
  init      Write a sample configuration file
  start     Start the server
  version   Print the version

Run 'offchaind <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("config", "", "Where to write the config (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	target := *path
	if target == "" {
		target = config.GetDefaultConfigPath()
	}

	if err := config.InitConfigToPath(target, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", target)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	// ========================================================================
	// Step 1: Load configuration and configure logging
	// ========================================================================

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		logger.Warn("Logging falls back to stdout: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("offchain-storage %s starting", version)
	logger.Debug("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ========================================================================
	// Step 2: Metrics (before stores so content backends are instrumented)
	// ========================================================================

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// ========================================================================
	// Step 3: Stores, policy and notifications
	// ========================================================================

	metaStore, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		return err
	}
	defer func() {
		if err := metaStore.Close(); err != nil {
			logger.Error("Failed to close metadata store: %v", err)
		}
	}()
	logger.Info("Metadata store: %s", cfg.Metadata.Type)

	contentStore, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		return err
	}
	defer func() {
		if err := contentStore.Close(); err != nil {
			logger.Error("Failed to close content store: %v", err)
		}
	}()
	logger.Info("Content store: %s", cfg.Content.Type)

	policy, err := config.CreatePolicy(&cfg.Policy)
	if err != nil {
		return err
	}

	notifier, err := config.CreateNotifier(&cfg.Notifications)
	if err != nil {
		return err
	}
	if notifier.Queue != nil {
		defer func() { _ = notifier.Queue.Close() }()
		go func() {
			if err := notifier.Queue.Forward(ctx, events.LogNotifier{}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Notification consumer stopped: %v", err)
			}
		}()
	}

	// ========================================================================
	// Step 4: Gateway, adapters and server
	// ========================================================================

	gw, err := gateway.New(gateway.Config{
		Metadata: metaStore,
		Content:  contentStore,
		Notifier: notifier.Notifier,
		Policy:   &policy,
		Metrics:  metricsResult.Gateway,
	})
	if err != nil {
		return err
	}
	if metricsResult.Server != nil {
		metricsResult.Server.SetHealthCheck(gw.Healthcheck)
	}
	logger.Info("Access policy: %s (create_on_write=%v, default_access=%s)",
		policy.Name, policy.CreateOnWrite, policy.DefaultAccess)

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTP)
	if err != nil {
		return err
	}

	srv := server.New(gw, cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
