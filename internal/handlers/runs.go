package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/qaforge/checkout-agent/api/v1"
	"github.com/qaforge/checkout-agent/internal/models"
	"github.com/qaforge/checkout-agent/internal/services"
	srvErrors "github.com/qaforge/checkout-agent/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetRuns returns the run history with filtering and pagination
// (GET /runs)
func (h *Handler) GetRuns(c *gin.Context) {
	page := 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	pageSize := defaultPageSize
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 {
		pageSize = min(v, maxPageSize)
	}

	filter := services.RunFilter{
		Limit:  uint64(pageSize),
		Offset: uint64((page - 1) * pageSize),
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Kinds = []models.RunKind{models.RunKind(kind)}
	}
	if country := c.Query("country"); country != "" {
		filter.Countries = []string{country}
	}
	if success := c.Query("success"); success != "" {
		v, err := strconv.ParseBool(success)
		if err != nil {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "invalid success filter"})
			return
		}
		filter.Success = &v
	}

	runs, total, err := h.runSrv.List(c.Request.Context(), filter)
	if err != nil {
		zap.S().Named("runs_handler").Errorw("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list runs"})
		return
	}

	pageCount := (total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}

	apiRuns := make([]v1.Run, 0, len(runs))
	for _, run := range runs {
		apiRuns = append(apiRuns, v1.NewRunFromModel(run))
	}

	c.JSON(http.StatusOK, v1.RunListResponse{
		Runs:      apiRuns,
		Total:     total,
		Page:      page,
		PageCount: pageCount,
	})
}

// GetRun returns a single run by id
// (GET /runs/{id})
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.runSrv.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if srvErrors.IsRunNotFoundError(err) {
			c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
			return
		}
		zap.S().Named("runs_handler").Errorw("failed to get run", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to get run"})
		return
	}
	c.JSON(http.StatusOK, v1.NewRunFromModel(*run))
}

// GetHealth reports service liveness
// (GET /health)
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, v1.HealthResponse{Status: "ok"})
}
