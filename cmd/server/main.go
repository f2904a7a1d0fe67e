// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/api/httpapi"
	"github.com/osa030/guildqueue/internal/app/filter"
	"github.com/osa030/guildqueue/internal/app/notification"
	"github.com/osa030/guildqueue/internal/app/playback"
	"github.com/osa030/guildqueue/internal/app/queue"
	"github.com/osa030/guildqueue/internal/infra/config"
	"github.com/osa030/guildqueue/internal/infra/discord"
	"github.com/osa030/guildqueue/internal/infra/logger"
	"github.com/osa030/guildqueue/internal/infra/redisstore"
	"github.com/osa030/guildqueue/internal/infra/simplayer"
)

var (
	app        = kingpin.New("guildqueue-server", "guildqueue music queue server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format").Default("console").Enum("console", "json")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Build the admission filter chain
	filters, err := buildFilters(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	// Validate default connect settings early
	if _, err := playback.DecodeConnectOptions(cfg.Playback.Connect); err != nil {
		return errors.Wrap(err, "invalid playback.connect settings")
	}

	// Connect to Redis
	store, err := redisstore.Connect(ctx, redisstore.Config{
		URL:        cfg.Redis.URL,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		return errors.Wrap(err, "failed to connect to redis")
	}
	defer store.Close()

	// Event fan-out, optionally relayed to Redis pub/sub
	notifier := notification.NewManager(cfg.NotificationTimeout())
	defer notifier.Close()
	if cfg.Queue.RelayEvents {
		notification.NewRelay(store, cfg.EventsChannel()).Attach(notifier)
		zlog.Info().Msgf("Relaying queue events to %s", cfg.EventsChannel())
	}

	// Channel directory (optional)
	directory, dg, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	if dg != nil {
		defer dg.Close()
	}

	// Playback engine and session binder
	engine := simplayer.NewEngine(simplayer.Config{
		ProgressInterval: cfg.ProgressInterval(),
		StartDelay:       cfg.StartDelay(),
	})
	binder := playback.NewBinder(engine, notifier)

	// Queue manager
	queues := queue.NewManager(queue.Config{
		KeyPrefix: cfg.Queue.KeyPrefix,
		Retention: cfg.Retention(),
	}, store, binder, notifier, directory)

	// HTTP server
	handler := httpapi.NewHandler(queues, binder, filters, cfg.Playback.Connect)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Mode:     cfg.Server.Mode,
		APIToken: cfg.Server.APIToken,
	}, handler)

	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Tear down players; queue state stays in Redis for the next start
	binder.Close(shutdownCtx)

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// openDirectory connects to Discord when a token is configured.
func openDirectory(cfg *config.Config) (queue.Directory, io.Closer, error) {
	if cfg.Discord.Token == "" {
		zlog.Info().Msg("Discord token not configured, text channels will not be resolved")
		return nil, nil, nil
	}

	dg, directory, err := discord.Open(cfg.Discord.Token, cfg.Discord.RESTFallback)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open discord directory")
	}
	return directory, dg, nil
}

// buildFilters creates the filter chain from enabled filter configs.
func buildFilters(cfg *config.Config) (*filter.Chain, error) {
	enabled := make(map[string]map[string]any)
	for name := range cfg.Filters {
		if cfg.IsFilterEnabled(name) {
			enabled[name] = cfg.FilterSettings(name)
		}
	}

	chain, err := filter.Build(enabled)
	if err != nil {
		return nil, err
	}
	for _, f := range chain.Filters() {
		zlog.Info().Msgf("Filter enabled: %s", f.Name())
	}
	return chain, nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
