package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trendscout/internal/db"
)

type HealthHandler struct {
	DB *db.DB
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
}

func (h *HealthHandler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) readyz(c *gin.Context) {
	if err := db.Ping(h.DB); err != nil {
		Error(c, http.StatusServiceUnavailable, "db unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
