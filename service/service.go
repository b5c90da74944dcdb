package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Service runs the optional healthz and metrics servers next to a run
type Service struct {
	log     log.Logger
	Healthz *HealthzServer
	Metrics *httputil.HTTPServer
}

func New(lgr log.Logger) *Service {
	return &Service{
		log:     lgr,
		Healthz: NewHealthzServer(lgr),
	}
}

// Start starts the servers that are configured. An empty healthzAddr disables
// the healthz server.
func (s *Service) Start(healthzAddr string, registry *prometheus.Registry, metricsCfg opmetrics.CLIConfig) error {
	s.log.Info("service starting")

	if healthzAddr != "" {
		if err := s.Healthz.Start(healthzAddr); err != nil {
			return fmt.Errorf("failed to start healthz server: %w", err)
		}
		s.log.Info("started healthz server", "addr", s.Healthz.Addr())
	}

	if metricsCfg.Enabled {
		s.log.Info("Starting metrics server", "addr", metricsCfg.ListenAddr, "port", metricsCfg.ListenPort)
		metricsServer, err := opmetrics.StartServer(registry, metricsCfg.ListenAddr, metricsCfg.ListenPort)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		s.log.Info("Started metrics server", "endpoint", metricsServer.Addr())
		s.Metrics = metricsServer
	}

	s.log.Info("service started")
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("service shutting down")

	var result error
	if err := s.Healthz.Shutdown(ctx); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to stop healthz server: %w", err))
	}
	s.log.Info("healthz stopped")

	if s.Metrics != nil {
		if err := s.Metrics.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
	return result
}
