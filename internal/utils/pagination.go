package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
)

// PaginationParams selects one page of a list
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// NewPaginationParams clamps page and limit into range and derives the offset.
// An out-of-range limit falls back to the default page size.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParsePagination reads the page and limit query parameters.
// The second result is false when the request asked for neither.
func ParsePagination(c *gin.Context) (PaginationParams, bool) {
	pageRaw, hasPage := c.GetQuery("page")
	limitRaw, hasLimit := c.GetQuery("limit")

	// Unparseable values become 0 and are clamped
	page, _ := strconv.Atoi(pageRaw)
	limit, _ := strconv.Atoi(limitRaw)
	if !hasLimit {
		limit = constants.DefaultPageSize
	}

	return NewPaginationParams(page, limit), hasPage || hasLimit
}
