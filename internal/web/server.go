package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"forcefocus/internal/config"
)

// Server is the HTTP listener for the front-end API
type Server struct {
	config *config.Config
	server *http.Server
}

// NewServer binds handler to the configured address. customPort overrides
// the configured port when positive.
func NewServer(cfg *config.Config, handler http.Handler, customPort int) *Server {
	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Remote.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config: cfg,
		server: httpServer,
	}
}

func (s *Server) Start() error {
	log.Printf("Starting web server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
