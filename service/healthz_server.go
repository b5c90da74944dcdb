package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

type HealthzServer struct {
	log    log.Logger
	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

func NewHealthzServer(lgr log.Logger) *HealthzServer {
	return &HealthzServer{log: lgr}
}

// Start listens on addr and serves /healthz until Shutdown
func (h *HealthzServer) Start(addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}

	h.mu.Lock()
	h.server = server
	h.addr = listener.Addr()
	h.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("healthz server failed", "err", err)
		}
	}()
	return nil
}

// Addr returns the address the server listens on, nil before Start
func (h *HealthzServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	server := h.server
	h.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
