package http_server

import (
	"net/http"

	"github.com/jaennil/guide_helper/backend/offline/pkg/config"
)

func NewServer(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
