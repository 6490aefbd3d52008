package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Events streams precache progress to the page as server-sent events.
func (h *Handler) Events(c *gin.Context) {
	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	l := requestLogger(c)
	l.Debug("progress subscriber connected", "subscribers", h.hub.Subscribers())

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("message", e)
			return true
		}
	})

	l.Debug("progress subscriber disconnected")
}
