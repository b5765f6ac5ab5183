package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/a11ywatch"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	serveListen   string
	serveMCPStdio bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, scheduled audits and the MCP tools",
	Long: `Serve the audit API on the configured address. Pages listed in the
configuration are re-audited on their interval, and rule settings are
reloaded when the settings file or table changes. With --mcp-stdio the
MCP tools are also served on stdin/stdout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP address (overrides config)")
	serveCmd.Flags().BoolVar(&serveMCPStdio, "mcp-stdio", false, "Serve MCP tools on stdin/stdout")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := a11ywatch.New(ctx, cfg, a11ywatch.WithLogger(logger))
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.Start(ctx); err != nil {
		cancel()
		return err
	}

	if serveMCPStdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "a11ywatch", Version: "1.0.0"}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp stdio", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Audits that render in a browser can take a while.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("a11ywatch: listening", "addr", cfg.Listen, "pages", len(cfg.Pages))
		errCh <- srv.ListenAndServe()
	}()
	if !serveMCPStdio {
		pterm.Info.Printf("a11ywatch listening on %s\n", cfg.Listen)
	}

	select {
	case err := <-errCh:
		cancel()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("a11ywatch: stopped")
	return nil
}
