package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message   string                   `json:"message"`
	Documents []retrieval.IngestResult `json:"documents"`
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response       string          `json:"response"`
	Sources        []answer.Source `json:"sources"`
	ConversationID *string         `json:"conversation_id"`
}

type documentsResponse struct {
	Documents []store.DocumentSummary `json:"documents"`
}

type chunksResponse struct {
	Chunks []chunkView `json:"chunks"`
}

type testSearchResponse struct {
	Query   string      `json:"query"`
	Results []chunkView `json:"results"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "GenAI RAG Chatbot API"})
}

// upload ingests every multipart "files" part. Parts without a filename
// are skipped; the first failing file aborts the request.
func (s *Server) upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with files")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	ctx := c.Request().Context()
	processed := make([]retrieval.IngestResult, 0, len(files))
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		res, err := s.svc.IngestReader(ctx, fh.Filename, f)
		_ = f.Close()
		if err != nil {
			return err
		}
		processed = append(processed, res)
	}

	return c.JSON(http.StatusOK, uploadResponse{Message: "Documents processed successfully", Documents: processed})
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "message is required")
	}

	ans, err := s.svc.Ask(c.Request().Context(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{
		Response:       ans.Text,
		Sources:        ans.Sources,
		ConversationID: req.ConversationID,
	})
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []store.DocumentSummary{}
	}
	return c.JSON(http.StatusOK, documentsResponse{Documents: docs})
}

func (s *Server) deleteDocument(c echo.Context) error {
	ok, err := s.svc.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Document deleted successfully"})
}

func (s *Server) debugChunks(c echo.Context) error {
	chunks, err := s.svc.Chunks(c.Request().Context())
	if err != nil {
		return err
	}
	views := make([]chunkView, len(chunks))
	for i, ch := range chunks {
		views[i] = viewOf(ch)
	}
	return c.JSON(http.StatusOK, chunksResponse{Chunks: views})
}

// testSearch runs a fixed-size search; the query defaults to "RAG".
func (s *Server) testSearch(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		query = "RAG"
	}
	results, err := s.svc.Search(c.Request().Context(), query, testSearchK)
	if err != nil {
		return err
	}
	views := make([]chunkView, len(results))
	for i, r := range results {
		views[i] = viewOf(r.Chunk)
	}
	return c.JSON(http.StatusOK, testSearchResponse{Query: query, Results: views})
}

// debugStats returns the search statistics; ?top= bounds the term list.
func (s *Server) debugStats(c echo.Context) error {
	top := defaultStatsTerms
	if v := c.QueryParam("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "top must be a positive integer")
		}
		top = n
	}
	stats, err := s.svc.Stats(c.Request().Context(), top)
	if err != nil {
		if ragerrors.GetCode(err) == ragerrors.ErrCodeConfigInvalid {
			return echo.NewHTTPError(http.StatusNotFound, "Telemetry is disabled")
		}
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
