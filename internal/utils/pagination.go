// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginationParams struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PaginationMeta is returned under "meta.pagination" and mirrored in X-* headers.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type PaginationResult struct {
	PaginationMeta
	Data interface{} `json:"data"`
}

// GetPaginationParams reads ?page=&limit=. Out-of-range values fall back to the
// first page and the default page size rather than failing the listing.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	limit := queryInt(c, "limit", DefaultPageSize)
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	return PaginationParams{Page: page, Limit: limit}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

// Offset is the number of rows the store skips before this page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}

	return PaginationResult{
		PaginationMeta: PaginationMeta{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
		Data: data,
	}
}

func SetPaginationHeaders(c *gin.Context, meta PaginationMeta) {
	c.Header("X-Total-Count", strconv.FormatInt(meta.Total, 10))
	c.Header("X-Page", strconv.Itoa(meta.Page))
	c.Header("X-Per-Page", strconv.Itoa(meta.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(meta.TotalPages))
}
