package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/wfs-catalog/services/api/db"
)

const maxLimit = 500

type pagination struct {
	page   int
	limit  int
	offset int
}

func (s *Server) parsePagination(c *gin.Context) pagination {
	page := 1
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}

	limit := s.cfg.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= maxLimit {
			limit = val
		}
	}

	return pagination{page: page, limit: limit, offset: (page - 1) * limit}
}

func (p pagination) meta(total int) gin.H {
	return gin.H{
		"page":        p.page,
		"limit":       p.limit,
		"total_count": total,
		"total_pages": (total + p.limit - 1) / p.limit,
	}
}

// optionalBool parses a tri-state query flag; absent means nil.
func optionalBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " parameter"})
		return nil, false
	}
	return &val, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeStoreError(c *gin.Context, err error, what string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
