// internal/api/handlers/stock_handler.go
package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/service"
)

// Runner processes uploaded source workbooks. Implemented by the
// pipeline orchestrator; abstracted here so handlers stay testable.
type Runner interface {
	RunFiles(ctx context.Context, paths []string) (*domain.StockDashboard, error)
}

type StockHandler struct {
	service   *service.StockService
	runner    Runner
	uploadDir string
}

func NewStockHandler(service *service.StockService, runner Runner, uploadDir string) *StockHandler {
	return &StockHandler{service: service, runner: runner, uploadDir: uploadDir}
}

func (h *StockHandler) parseFilter(c *gin.Context) domain.StockFilter {
	filter := domain.StockFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	// Locations accepted as repeated params or a comma-separated list.
	raw := c.QueryArray("locations")
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query("locations")); single != "" {
			raw = strings.Split(single, ",")
		}
	}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Locations = append(filter.Locations, part)
			}
		}
	}

	filter.From = parseDateQuery(c, "from")
	filter.To = parseDateQuery(c, "to")

	return filter
}

func parseDateQuery(c *gin.Context, param string) time.Time {
	value := strings.TrimSpace(c.Query(param))
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (h *StockHandler) GetRecords(c *gin.Context) {
	filter := h.parseFilter(c)
	records, total, err := h.service.GetRecords(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stock records", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
	})
}

func (h *StockHandler) GetMonthly(c *gin.Context) {
	from := parseDateQuery(c, "from")
	to := parseDateQuery(c, "to")

	summaries, err := h.service.GetMonthlySummaries(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch monthly summaries", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (h *StockHandler) GetSiteDeliveries(c *gin.Context) {
	deliveries, err := h.service.GetSiteDeliveries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch site deliveries", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, deliveries)
}

func (h *StockHandler) GetValidation(c *gin.Context) {
	report, err := h.service.GetLatestValidation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch validation report", "details": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no validation run stored"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *StockHandler) GetDashboard(c *gin.Context) {
	dash, err := h.service.GetDashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch dashboard", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dash)
}

// Upload receives one or more xlsx exports, stores them in the upload
// directory and runs the pipeline over them synchronously.
func (h *StockHandler) Upload(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not configured"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form", "details": err.Error()})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	var paths []string
	for _, file := range files {
		if !strings.HasSuffix(strings.ToLower(file.Filename), ".xlsx") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx files are accepted", "file": file.Filename})
			return
		}
		dst := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload", "details": err.Error()})
			return
		}
		paths = append(paths, dst)
	}

	dash, err := h.runner.RunFiles(c.Request.Context(), paths)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pipeline run failed", "details": err.Error()})
		return
	}

	log.Info().Int("files", len(paths)).Msg("upload processed")
	c.JSON(http.StatusOK, dash)
}
