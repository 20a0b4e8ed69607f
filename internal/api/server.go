// Package api serves the chatbot over HTTP for the web frontend.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
)

const (
	// DebugPreviewChars bounds chunk content in debug listings.
	DebugPreviewChars = 200

	testSearchK = 3

	defaultStatsTerms = 10
)

// Config configures the HTTP server.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxUploadMB    int
}

// Server is the HTTP front of a retrieval.Service.
type Server struct {
	svc  *retrieval.Service
	cfg  Config
	echo *echo.Echo
}

// NewServer registers the routes. It does not listen.
func NewServer(svc *retrieval.Service, cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.Info("http_request", attrs...)
			return nil
		},
	}))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"*"},
		}))
	}
	if cfg.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(strconv.Itoa(cfg.MaxUploadMB) + "M"))
	}

	s := &Server{svc: svc, cfg: cfg, echo: e}
	e.GET("/", s.root)
	e.POST("/upload", s.upload)
	e.POST("/chat", s.chat)
	e.GET("/documents", s.listDocuments)
	e.DELETE("/documents/:id", s.deleteDocument)
	e.GET("/debug/chunks", s.debugChunks)
	e.POST("/test-search", s.testSearch)
	e.GET("/debug/stats", s.debugStats)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_started", slog.String("addr", s.Addr()))
		errCh <- s.echo.Start(s.Addr())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	slog.Info("http_server_stopped")
	return nil
}

// errorHandler renders every failure as {"detail": message}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := err.Error()

	var he *echo.HTTPError
	var re *ragerrors.RagError
	switch {
	case errors.As(err, &he):
		status = he.Code
		detail = fmt.Sprint(he.Message)
	case errors.As(err, &re):
		switch re.Category {
		case ragerrors.CategoryValidation:
			status = http.StatusBadRequest
		case ragerrors.CategoryIO:
			if re.Code == ragerrors.ErrCodeUnsupportedFile {
				status = http.StatusBadRequest
			}
		}
		detail = re.Message
	}

	if status >= http.StatusInternalServerError {
		slog.Error("http_request_failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]string{"detail": detail})
}

// chunkView is a chunk as shown by the debug endpoints.
type chunkView struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   chunk.Metadata `json:"metadata"`
}

func viewOf(c chunk.Chunk) chunkView {
	return chunkView{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Content:    c.Preview(DebugPreviewChars),
		Metadata:   c.Metadata,
	}
}
