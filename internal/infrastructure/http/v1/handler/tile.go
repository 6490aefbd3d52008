package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/offline/internal/tile"
	"github.com/paulmach/orb/maptile"
)

const maxZoom = 22

func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)

	strZ := c.Param("z")
	strX := c.Param("x")
	strY := strings.TrimSuffix(c.Param("y"), ".png")

	z, err := strconv.ParseUint(strZ, 10, 32)
	if err != nil || z > maxZoom {
		l.Warn("invalid z parameter", "z", strZ, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "z should be integer between 0 and 22",
		})
		return
	}

	x, err := strconv.ParseUint(strX, 10, 32)
	if err != nil || x >= 1<<z {
		l.Warn("invalid x parameter", "x", strX, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "x should be integer within the zoom level",
		})
		return
	}

	y, err := strconv.ParseUint(strY, 10, 32)
	if err != nil || y >= 1<<z {
		l.Warn("invalid y parameter", "y", strY, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "y should be integer within the zoom level",
		})
		return
	}

	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))

	req, err := h.newRequest(c, tile.URL(h.cfg.TileOrigin, t))
	if err != nil {
		l.Warn("failed to read request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.serve(c, req)
}
