package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Proxy forwards any route the service does not own to the application origin.
func (h *Handler) Proxy(c *gin.Context) {
	target := strings.TrimRight(h.cfg.AppOrigin, "/") + c.Request.URL.RequestURI()

	req, err := h.newRequest(c, target)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrRequestTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		requestLogger(c).Warn("failed to read request", "path", c.Request.URL.Path, "error", err)
		c.String(status, err.Error())
		return
	}

	h.serve(c, req)
}
