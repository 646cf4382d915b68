package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trendscout/internal/models"
	"trendscout/internal/repository"
)

type CampaignHandler struct {
	Repo repository.Repository
}

func (h *CampaignHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/campaigns")
	group.GET("", h.listCampaigns)
	group.GET("/:id", h.getCampaign)
	group.PATCH("/:id/status", h.updateStatus)
	group.POST("/:id/download", h.recordDownload)
}

// listCampaigns godoc
// @Summary List campaigns
// @Tags campaigns
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by campaign type"
// @Param trend_id query string false "Filter by trend"
// @Param min_score query number false "Minimum overall score"
// @Success 200 {object} map[string]any
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) listCampaigns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	var trendID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("trend_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid trend_id")
			return
		}
		trendID = &parsed
	}

	params := repository.ListCampaignsParams{
		Limit:        limit,
		Offset:       offset,
		Status:       stringQueryPtr(c, "status"),
		CampaignType: stringQueryPtr(c, "type"),
		TrendID:      trendID,
		MinOverall:   floatQueryPtr(c, "min_score"),
		OrderBy: orderColumn(c, "order_by", map[string]string{
			"overall_score": "overall_score",
			"created_at":    "created_at",
			"view_count":    "view_count",
		}),
		Asc: boolPtr(false),
	}

	items, err := h.Repo.ListCampaigns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	total, err := h.Repo.CountCampaigns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	OkPage(c, items, NewPage(limit, offset, total))
}

func (h *CampaignHandler) getCampaign(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	item, err := h.Repo.GetCampaignByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "campaign not found")
		return
	}
	// A successful read counts as a view.
	_ = h.Repo.IncrementCampaignViews(c.Request.Context(), id)
	Ok(c, item)
}

// recordDownload bumps the download counter for a campaign that was exported
// by a client.
func (h *CampaignHandler) recordDownload(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	existing, err := h.Repo.GetCampaignByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "campaign not found")
		return
	}
	if err := h.Repo.IncrementCampaignDownloads(c.Request.Context(), id); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, gin.H{"campaign_id": id, "recorded": true})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *CampaignHandler) updateStatus(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	switch req.Status {
	case models.CampaignStatusDraft, models.CampaignStatusReady, models.CampaignStatusActive,
		models.CampaignStatusCompleted, models.CampaignStatusArchived:
	default:
		Error(c, http.StatusBadRequest, "unknown status")
		return
	}
	existing, err := h.Repo.GetCampaignByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "campaign not found")
		return
	}
	if err := h.Repo.UpdateCampaignStatus(c.Request.Context(), id, req.Status); err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	existing.Status = req.Status
	Ok(c, existing)
}
