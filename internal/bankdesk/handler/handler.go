// Package handler provides HTTP handlers for the bankdesk service.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kart-io/bankdesk/internal/bankdesk/biz"
	"github.com/kart-io/bankdesk/internal/bankdesk/metrics"
	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/internal/pkg/rag/textutil"
)

// listAnswerLimit bounds answer previews in history listings.
const listAnswerLimit = 200

// Handler handles bankdesk HTTP requests.
type Handler struct {
	service        *biz.Service
	version        string
	requestTimeout time.Duration
}

// New creates a Handler.
func New(service *biz.Service, version string, requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &Handler{
		service:        service,
		version:        version,
		requestTimeout: requestTimeout,
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryRequest represents a customer service question.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse is the full pipeline outcome for one question.
type QueryResponse struct {
	QueryID uint64 `json:"query_id"`
	*model.PipelineResult
	ConfidenceLevel string `json:"confidence_level"`
}

// Query runs the question through the pipeline and persists the result.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	query, result, err := h.service.ProcessQuery(ctx, req.Question)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: QueryResponse{
		QueryID:         query.ID,
		PipelineResult:  result,
		ConfidenceLevel: result.ConfidenceLevel(),
	}})
}

// GetQuery returns one stored query by ID.
func (h *Handler) GetQuery(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "invalid query id"})
		return
	}

	query, err := h.service.GetQuery(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: "query not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: query})
}

// QueryListItem is one history row with the answer truncated for listing.
type QueryListItem struct {
	ID              uint64    `json:"id"`
	Question        string    `json:"question"`
	DetectedIntent  string    `json:"detected_intent"`
	Answer          string    `json:"answer"`
	ConfidenceScore int       `json:"confidence_score"`
	ConfidenceLevel string    `json:"confidence_level"`
	SourceDocument  string    `json:"source_document"`
	ResponseTimeMs  int64     `json:"response_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryListResponse is a page of query history.
type QueryListResponse struct {
	Total int64           `json:"total"`
	Items []QueryListItem `json:"items"`
}

// ListQueries returns a filtered page of query history, newest first.
func (h *Handler) ListQueries(c *gin.Context) {
	filter := &model.QueryFilter{
		Limit:  intQuery(c, "limit", 20),
		Offset: intQuery(c, "offset", 0),
		Intent: c.Query("intent"),
	}
	if v, ok := optionalIntQuery(c, "min_confidence"); ok {
		filter.MinConfidence = &v
	}
	if v, ok := optionalIntQuery(c, "max_confidence"); ok {
		filter.MaxConfidence = &v
	}

	list, err := h.service.ListQueries(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	resp := QueryListResponse{
		Total: list.TotalCount,
		Items: make([]QueryListItem, 0, len(list.Items)),
	}
	for _, q := range list.Items {
		answer := q.Answer
		if len([]rune(answer)) > listAnswerLimit {
			answer = textutil.TruncateString(answer, listAnswerLimit) + "..."
		}
		resp.Items = append(resp.Items, QueryListItem{
			ID:              q.ID,
			Question:        q.Question,
			DetectedIntent:  q.DetectedIntent,
			Answer:          answer,
			ConfidenceScore: q.ConfidenceScore,
			ConfidenceLevel: model.ConfidenceLevel(q.ConfidenceScore),
			SourceDocument:  q.SourceDocument,
			ResponseTimeMs:  q.ResponseTimeMs,
			CreatedAt:       q.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: resp})
}

// ListDocuments returns indexed documents with usage counts, most used first.
func (h *Handler) ListDocuments(c *gin.Context) {
	documents, err := h.service.Documents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: documents})
}

// DocumentContentResponse is the raw markdown of one knowledge base document.
type DocumentContentResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// GetDocument returns the raw content of one knowledge base document.
func (h *Handler) GetDocument(c *gin.Context) {
	name := c.Param("name")
	content, err := h.service.DocumentContent(name)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: "document not found: " + name})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: DocumentContentResponse{
		Name:    name,
		Content: content,
	}})
}

// Stats returns aggregate dashboard statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// ClearQueries deletes all stored query history.
func (h *Handler) ClearQueries(c *gin.Context) {
	removed, err := h.service.ClearHistory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "Query history cleared",
		Data:    gin.H{"removed": removed},
	})
}

// Index rebuilds the knowledge base index from scratch.
func (h *Handler) Index(c *gin.Context) {
	report, err := h.service.Reindex(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Knowledge base indexed successfully", Data: report})
}

// ClearIndex drops all indexed chunks.
func (h *Handler) ClearIndex(c *gin.Context) {
	if err := h.service.ClearIndex(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Knowledge base index cleared"})
}

// HealthResponse reports service liveness and index state.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	IndexedChunks int64  `json:"indexed_chunks"`
}

// Healthz reports service health. The index count is best effort: an
// unreachable vector store degrades the status instead of failing the probe.
func (h *Handler) Healthz(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Version: h.version}

	count, err := h.service.IndexedCount(c.Request.Context())
	if err != nil {
		resp.Status = "degraded"
	} else {
		resp.IndexedChunks = count
	}

	c.JSON(http.StatusOK, resp)
}

// Metrics serves the Prometheus text exposition of pipeline metrics.
func (h *Handler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(metrics.GetPipelineMetrics().Export("bankdesk", "pipeline")))
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func optionalIntQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
