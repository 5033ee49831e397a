// Package api exposes the search pipeline and catalog store over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookdash/internal/catalog"
	"bookdash/internal/search"
	"bookdash/internal/storage"
)

// Handler contains all HTTP handlers.
type Handler struct {
	svc *search.Service
	db  *storage.Database
	log *zap.Logger
}

// NewHandler creates a new handler instance.
func NewHandler(svc *search.Service, db *storage.Database, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, db: db, log: log.Named("api")}
}

// RegisterRoutes wires the API route groups onto the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/search", h.Search)
		apiGroup.POST("/catalog", h.SaveCatalog)
		apiGroup.GET("/catalog", h.ListCatalog)
		apiGroup.GET("/catalog/:id/records", h.GetCatalogRecords)
	}
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Search runs the full pipeline for the query parameters and returns the
// ordered edition groups. Zero matches is a successful empty result; a
// total provider failure is a 502.
func (h *Handler) Search(c *gin.Context) {
	req := search.Request{
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		ISBN:     c.Query("isbn"),
		Page:     intQuery(c, "page"),
		PageSize: intQuery(c, "pageSize"),
	}
	if v := c.Query("minValidationConfidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid minValidationConfidence"})
			return
		}
		req.MinValidationConfidence = f
		req.Validate = true
	}
	if c.Query("validate") == "true" {
		req.Validate = true
	}

	resp, err := h.svc.Search(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrMissingQuery):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, search.ErrAllProvidersFailed):
			h.log.Error("search failed on all providers", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "all providers failed"})
		default:
			h.log.Error("search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
		}
		return
	}

	data := resp.Groups
	if data == nil {
		data = []catalog.EditionGroup{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// saveCatalogRequest is the POST /api/catalog body.
type saveCatalogRequest struct {
	BookKey string                 `json:"book_key" binding:"required"`
	Groups  []catalog.EditionGroup `json:"groups" binding:"required"`
}

// SaveCatalog persists an edition-group list produced by a search.
func (h *Handler) SaveCatalog(c *gin.Context) {
	var req saveCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "book_key and groups are required"})
		return
	}

	if err := h.db.SaveEditionGroups(req.BookKey, req.Groups); err != nil {
		h.log.Error("catalog save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save catalog"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// ListCatalog returns all persisted edition entries.
func (h *Handler) ListCatalog(c *gin.Context) {
	entries, err := h.db.ListEntries()
	if err != nil {
		h.log.Error("catalog list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list catalog"})
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

// GetCatalogRecords returns the member records of one persisted edition.
func (h *Handler) GetCatalogRecords(c *gin.Context) {
	records, err := h.db.GetEntryRecords(c.Param("id"))
	if err != nil {
		h.log.Error("catalog records fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch records"})
		return
	}
	if records == nil {
		records = []catalog.BookRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func intQuery(c *gin.Context, name string) int {
	v := c.Query(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
