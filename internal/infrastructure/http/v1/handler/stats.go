package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cacheStats struct {
	Version     string   `json:"version"`
	Backend     string   `json:"backend"`
	Entries     int      `json:"entries"`
	Versions    []string `json:"versions"`
	Controlled  bool     `json:"controlled"`
	Subscribers int      `json:"subscribers"`
}

func (h *Handler) CacheStats(c *gin.Context) {
	l := requestLogger(c)
	ctx := c.Request.Context()

	keys, err := h.store.Keys(ctx)
	if err != nil {
		l.Error("failed to list cache entries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to read cache",
		})
		return
	}

	versions, err := h.storage.Versions(ctx)
	if err != nil {
		l.Error("failed to list cache versions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to read cache",
		})
		return
	}

	c.JSON(http.StatusOK, cacheStats{
		Version:     h.cfg.Version,
		Backend:     h.cfg.Backend,
		Entries:     len(keys),
		Versions:    versions,
		Controlled:  h.Controlled(),
		Subscribers: h.hub.Subscribers(),
	})
}
