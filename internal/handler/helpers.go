package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func floatQueryPtr(c *gin.Context, key string) *float64 {
	if val := c.Query(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return &f
		}
	}
	return nil
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func stringQueryPtr(c *gin.Context, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func boolPtr(v bool) *bool { return &v }

// orderColumn whitelists sort columns so query params never reach SQL raw.
func orderColumn(c *gin.Context, key string, allow map[string]string) string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return ""
	}
	if mapped, ok := allow[raw]; ok {
		return mapped
	}
	return ""
}
