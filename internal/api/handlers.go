package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/builder"
	"github.com/romangod6/sitemapgen/internal/sitemap"
	"github.com/romangod6/sitemapgen/internal/storage"
)

type Handler struct {
	builder *builder.Builder
	store   storage.Store
	log     zerolog.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count,omitempty"`
}

// GenerateResponse describes a run triggered over the API.
type GenerateResponse struct {
	RunID    string          `json:"run_id"`
	Report   *sitemap.Report `json:"report"`
	Document string          `json:"document_url"`
}

func NewHandler(b *builder.Builder, store storage.Store, logger zerolog.Logger) *Handler {
	return &Handler{builder: b, store: store, log: logger}
}

// GetSitemap serves the most recently generated document.
func (h *Handler) GetSitemap(c *gin.Context) {
	latest := h.builder.Latest()
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Sitemap not generated yet"})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", latest.Document)
}

// ListEntries pages through the entries of the latest document.
func (h *Handler) ListEntries(c *gin.Context) {
	latest := h.builder.Latest()
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Sitemap not generated yet"})
		return
	}

	page, limit := getPaginationParams(c)
	c.JSON(http.StatusOK, PaginationResponse{
		Data:       paginate(latest.Entries, page, limit),
		Page:       page,
		Limit:      limit,
		TotalCount: len(latest.Entries),
	})
}

// Generate rebuilds the sitemap now.
func (h *Handler) Generate(c *gin.Context) {
	result, err := h.builder.Build(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sitemap.ErrExtraction) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		RunID:    result.Run.ID.String(),
		Report:   result.Report,
		Document: "/sitemap.xml",
	})
}

func (h *Handler) ListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	runs, err := h.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch runs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch runs"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  runs,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid run ID"})
		return
	}

	run, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch run")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch run"})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) GetRunEntries(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid run ID"})
		return
	}

	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	entries, err := h.store.ListEntries(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch run entries")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch run entries"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  entries,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "Run history is disabled"})
		return false
	}
	return true
}

func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}
