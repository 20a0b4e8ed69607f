package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/briany/genai-rag-chatbot/internal/api"
	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/mcp"
	"github.com/briany/genai-rag-chatbot/internal/output"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/internal/watcher"
)

type serveOptions struct {
	mcp      bool
	watchDir string
	host     string
	port     int
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, or MCP over stdio",
		Long: `Start the HTTP API used by the web frontend (POST /upload, POST /chat,
GET /documents, DELETE /documents/:id, GET /debug/chunks, POST /test-search).

With --mcp the same operations are exposed as MCP tools over stdio instead;
nothing else is written to stdout in that mode.

With --watch, supported files created or modified in the directory are
ingested automatically and deleted files are removed from the store.`,
		Example: `  ragchat serve --port 8001
  ragchat serve --watch ./inbox
  ragchat serve --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Serve MCP over stdio instead of HTTP")
	cmd.Flags().StringVar(&opts.watchDir, "watch", "", "Ingest files dropped into this directory (default watch.dir)")
	cmd.Flags().StringVar(&opts.host, "host", "", "Listen host (default server.host)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Listen port (default server.port)")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	svc, cfg, cleanup, err := openService(ctx, opts.mcp)
	if err != nil {
		return err
	}
	defer cleanup()

	watchDir := opts.watchDir
	if watchDir == "" {
		watchDir = cfg.Watch.Dir
	}

	// The inbox stops when the server does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if watchDir != "" {
		inbox, err := watcher.NewInbox(watchDir, svc, watcher.Options{Debounce: cfg.Watch.Debounce})
		if err != nil {
			return err
		}
		g.Go(func() error { return inbox.Run(gctx) })
	}

	if opts.mcp {
		srv, err := mcp.NewServer(svc)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer cancel()
			return srv.Serve(gctx, "stdio")
		})
		return ignoreCanceled(g.Wait())
	}

	srv := api.NewServer(svc, apiConfig(cfg, opts))
	out := output.New(cmd.OutOrStdout())
	out.Statusf("🚀", "Serving HTTP API on http://%s", srv.Addr())
	if watchDir != "" {
		out.Statusf("📥", "Watching %s", watchDir)
	}
	if svc.MockMode() {
		out.Warning("No LLM API key configured: answers use mock mode")
	}

	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})
	return ignoreCanceled(g.Wait())
}

func apiConfig(cfg *config.Config, opts serveOptions) api.Config {
	c := api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
	}
	if opts.host != "" {
		c.Host = opts.host
	}
	if opts.port > 0 {
		c.Port = opts.port
	}
	return c
}

func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	slog.Error("serve_stopped", slog.String("error", err.Error()))
	return fmt.Errorf("server stopped: %w", err)
}

var _ watcher.Ingester = (*retrieval.Service)(nil)
