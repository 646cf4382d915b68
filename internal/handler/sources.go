package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trendscout/internal/repository"
)

type SourceHandler struct {
	Repo repository.Repository
}

func (h *SourceHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/sources", h.listSources)
}

func (h *SourceHandler) listSources(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable")
		return
	}
	items, err := h.Repo.ListSourceHealth(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	Ok(c, items)
}
