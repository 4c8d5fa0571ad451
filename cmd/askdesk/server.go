package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mammadli/askdesk/internal/api"
	"github.com/mammadli/askdesk/internal/bootstrap"
	"github.com/mammadli/askdesk/internal/config"
	"github.com/mammadli/askdesk/internal/ingest"
	"github.com/mammadli/askdesk/internal/resolver"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the askdesk server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running askdesk server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show askdesk system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "askdesk.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "askdesk version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the management API token exists.
	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("askdesk is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("askdesk is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bring up subsystems. Run never fails outright; the slots say what
	// came up and the service serves whatever it can.
	state := bootstrap.Run(ctx, cfg)
	defer func() {
		if err := state.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	if !state.ComponentsReady() {
		printWarning("running in degraded mode: question answering disabled")
		for _, slot := range state.Slots() {
			if slot.Status == bootstrap.StatusFailed {
				printStatus(string(slot.Kind), "failed: %s", slot.Reason)
			}
		}
	}
	if state.Slot(bootstrap.KindAIClient).Status != bootstrap.StatusReady {
		printWarning("AI client unavailable: answering from knowledge search only")
	}

	// The resolver only gets a generator when the AI client came up;
	// without one it starts at the knowledge-search tier.
	var res *resolver.Resolver
	if state.Knowledge != nil {
		var gen resolver.Generator
		marker := cfg.Gemini.FailureMarker
		if state.Assistant != nil {
			gen = state.Assistant
			marker = state.Assistant.FailureMarker()
		}
		res = resolver.New(gen, state.Knowledge, marker)
	}

	// Ingest worker extracts text from uploads in the background.
	var worker *ingest.Worker
	if state.Store != nil && state.Docs != nil {
		worker = ingest.NewWorker(state.Store, state.Docs, 500*time.Millisecond)
		go worker.Run(ctx)
	}

	deps := api.AppDeps{
		State:   state,
		Store:   state.Store,
		Docs:    state.Docs,
		Token:   apiToken,
		Version: version,
	}
	if res != nil {
		deps.Resolver = res
	}
	if worker != nil {
		deps.Reindex = worker
	}

	handler := api.NewHandler(deps)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server over stdio, sharing the same deps as HTTP.
	mcpSrv := api.NewMCPServer(deps)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "askdesk listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("askdesk is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop askdesk (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to askdesk (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Rich model", "%s", cfg.Gemini.RichModel)
	printStatus("Fast model", "%s", cfg.Gemini.FastModel)
	if cfg.Gemini.APIKey == "" {
		printStatus("Gemini key", "not configured")
	} else {
		printStatus("Gemini key", "configured")
	}

	// Show per-component detail if the server is running.
	if resp != nil && resp.StatusCode == 200 {
		apiClient, clientErr := newAPIClient()
		if clientErr == nil {
			healthResp, err := apiClient.get(ctx, "/health")
			if err == nil {
				var health struct {
					Components map[string]struct {
						Status string `json:"status"`
						Reason string `json:"reason"`
					} `json:"components"`
					ComponentsReady bool `json:"components_ready"`
				}
				if decodeJSON(healthResp, &health) == nil {
					for name, comp := range health.Components {
						if comp.Reason != "" {
							printStatus(name, "%s (%s)", comp.Status, comp.Reason)
						} else {
							printStatus(name, "%s", comp.Status)
						}
					}
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
