package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trendscout/internal/models"
	"trendscout/internal/repository"
)

// CycleRunner is what the handler needs from the cycle coordinator.
type CycleRunner interface {
	Run(ctx context.Context, cycleDate time.Time) (*models.CycleReport, error)
}

type CycleHandler struct {
	Repo   repository.Repository
	Runner CycleRunner
	Logger *zap.Logger

	// BaseCtx outlives the HTTP request for manually triggered runs.
	BaseCtx context.Context
}

func (h *CycleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/cycles")
	group.GET("", h.listReports)
	group.GET("/:date", h.getReport)
	group.GET("/:date/attempts", h.listAttempts)
	group.POST("/run", h.triggerRun)
}

func (h *CycleHandler) listReports(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	limit := intQuery(c, "limit", 30)
	items, err := h.Repo.ListCycleReports(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

func (h *CycleHandler) getReport(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	date, err := parseCycleDate(c.Param("date"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	item, err := h.Repo.GetCycleReportByDate(c.Request.Context(), date)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no report for that date")
		return
	}
	Ok(c, item)
}

func (h *CycleHandler) listAttempts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	date, err := parseCycleDate(c.Param("date"))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	items, err := h.Repo.ListGenerationAttempts(c.Request.Context(), repository.ListGenerationAttemptsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		Status:    stringQueryPtr(c, "status"),
		CycleDate: &date,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

// triggerRun kicks off a cycle for today (or ?date=YYYY-MM-DD) in the
// background and returns immediately. Idempotency comes from the pipeline
// itself, not from the handler.
func (h *CycleHandler) triggerRun(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "runner unavailable")
		return
	}
	date := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := parseCycleDate(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		date = parsed
	}

	baseCtx := h.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	go func() {
		if _, err := h.Runner.Run(baseCtx, date); err != nil && h.Logger != nil {
			h.Logger.Error("manual cycle run failed", zap.Error(err))
		}
	}()

	Ok(c, map[string]any{"cycle_date": date.Format("2006-01-02"), "started": true})
}

func parseCycleDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}
