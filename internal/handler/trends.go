package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trendscout/internal/repository"
)

type TrendHandler struct {
	Repo repository.Repository
}

func (h *TrendHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/trends")
	group.GET("", h.listTrends)
	group.GET("/:id", h.getTrend)
	group.GET("/:id/observations", h.listObservations)
	group.GET("/:id/campaigns", h.listTrendCampaigns)
}

// listTrends godoc
// @Summary List trends
// @Tags trends
// @Param status query string false "Filter by status (active, archived)"
// @Param category query string false "Filter by category"
// @Param min_score query number false "Minimum overall score"
// @Param rising query bool false "Only rising trends"
// @Param platform query string false "Only trends seen on this source"
// @Param sustainable_only query bool false "Only trends with a known sustainability score"
// @Param q query string false "Search in title and description"
// @Success 200 {object} map[string]any
// @Router /api/v1/trends [get]
func (h *TrendHandler) listTrends(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	params := repository.ListTrendsParams{
		Limit:       limit,
		Offset:      offset,
		Status:      stringQueryPtr(c, "status"),
		Category:    stringQueryPtr(c, "category"),
		MinScore:    floatQueryPtr(c, "min_score"),
		IsRising:    boolQueryPtr(c, "rising"),
		IsBrandSafe: boolQueryPtr(c, "brand_safe"),
		Platform:    stringQueryPtr(c, "platform"),
		Sustainable: boolQueryPtr(c, "sustainable_only"),
		Search:      stringQueryPtr(c, "q"),
		OrderBy: orderColumn(c, "order_by", map[string]string{
			"score":        "score",
			"last_seen_at": "last_seen_at",
			"first_seen":   "first_seen_at",
			"created_at":   "created_at",
		}),
		Asc: boolPtr(false),
	}

	items, err := h.Repo.ListTrends(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	total, err := h.Repo.CountTrends(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	OkPage(c, items, NewPage(limit, offset, total))
}

func (h *TrendHandler) getTrend(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid trend id")
		return
	}
	item, err := h.Repo.GetTrendByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "trend not found")
		return
	}
	Ok(c, item)
}

func (h *TrendHandler) listObservations(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid trend id")
		return
	}
	limit := intQuery(c, "limit", 30)
	items, err := h.Repo.ListObservationsByTrendID(c.Request.Context(), id, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}

func (h *TrendHandler) listTrendCampaigns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid trend id")
		return
	}
	items, err := h.Repo.ListCampaignsByTrendID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}
