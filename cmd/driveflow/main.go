package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/api"
	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/auth"
	"github.com/btouchard/driveflow/internal/calsync"
	"github.com/btouchard/driveflow/internal/config"
	driveflowmcp "github.com/btouchard/driveflow/internal/mcp"
	"github.com/btouchard/driveflow/internal/notify"
	"github.com/btouchard/driveflow/internal/store"
	"github.com/btouchard/driveflow/internal/task"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("driveflow %s\n", version)
	case "check":
		cmdCheck(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: driveflow <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the DriveFlow server\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting driveflow",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
	fmt.Printf("  database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)
	fmt.Printf("  calendar:  %s\n", cfg.Google.CalendarID)
	fmt.Printf("  callback:  %s\n", cfg.CallbackURL())
	fmt.Printf("  timezone:  %s\n", cfg.Location())
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stdout only", "path", cfg.Server.LogFile, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- Persistence ---
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	kv, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = kv.Close() }()

	slog.Info("database opened", "driver", cfg.Database.Driver, "path", cfg.Database.Path)

	// --- Notifications ---
	inbox := notify.NewInbox(cfg.Notifications.InboxSize)
	hub := notify.NewHub(notify.LogNotifier{}, inbox)

	// --- Appointments ---
	appts := appointment.NewStore(kv, cfg.Location())
	if err := appts.Load(); err != nil {
		return fmt.Errorf("loading appointments: %w", err)
	}

	// --- Calendar authorization ---
	provider := auth.NewGoogleProvider(cfg.Google.ClientSecret, cfg.CallbackURL())
	tokens := auth.NewTokenManager(kv, provider, hub, auth.Options{
		RetryDelay:       cfg.Sync.ConnectRetryDelay,
		FallbackClientID: cfg.Google.ClientID,
	})
	if err := tokens.Load(); err != nil {
		return fmt.Errorf("loading calendar credentials: %w", err)
	}

	sessions := auth.NewSessions(kv, cfg.Operator.Name, cfg.Operator.Avatar)
	if err := sessions.Load(); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	// --- Sync engine ---
	tm := task.NewManager(cfg.Sync.RequestTimeout, cfg.Sync.TaskHistory)
	tm.SetNotifyFunc(func(e task.Event) {
		level := notify.LevelInfo
		if e.Type == "sync.failed" {
			level = notify.LevelWarning
		}
		hub.Notify(notify.Event{
			Type:    e.Type,
			Level:   level,
			Subject: e.Subject,
			Message: fmt.Sprintf("%s %s: %s", e.Kind, e.TaskID, e.Message),
		})
	})

	remote := calsync.NewGoogleCalendar(cfg.Google.CalendarID, cfg.Google.APIEndpoint)
	engine := calsync.NewEngine(tm, remote, tokens, appts)
	appts.SetMutationFunc(engine.Handle)

	// --- MCP Server ---
	mcpServer := driveflowmcp.NewServer(&driveflowmcp.Deps{
		Appointments: appts,
		Tokens:       tokens,
		Tasks:        tm,
		Version:      version,
	})
	hub.Add(notify.NewMCPNotifier(mcpServer, cfg.Notifications.MCPDebounce))

	mcpHTTP := server.NewStreamableHTTPServer(mcpServer)

	// --- HTTP Router ---
	r := api.NewRouter(&api.Deps{
		Appointments: appts,
		Tokens:       tokens,
		Sessions:     sessions,
		Tasks:        tm,
		Inbox:        inbox,
		Callback:     provider.HandleCallback,
		MCP:          mcpHTTP,
		Version:      version,
	})

	// --- HTTP Server ---
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// The consent callback is reachable from here on.
	provider.SetReady(true)
	slog.Info("driveflow is ready",
		"addr", addr,
		"calendar", tokens.State().Name(),
		"appointments", len(appts.List()))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	provider.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := tm.Wait(shutdownCtx); err != nil {
		slog.Warn("sync tasks still running at shutdown", "running", tm.RunningCount())
	}
	return nil
}
