package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiResponse is the envelope every endpoint answers with. Code is 0 on
// success and mirrors the HTTP status on failure, so clients can switch on
// one field.
type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    *Page  `json:"meta,omitempty"`
}

// Page is the pagination meta attached to list responses.
type Page struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

func NewPage(limit, offset int, total int64) Page {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return Page{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasNext: int64(offset+limit) < total,
	}
}

func Ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: "ok", Data: data})
}

func OkPage(c *gin.Context, data any, page Page) {
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: "ok", Data: data, Meta: &page})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{Code: status, Message: message})
}
