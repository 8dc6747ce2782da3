package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	dispatchapi "github.com/kilianp07/eld/api/dispatch"
	"github.com/kilianp07/eld/config"
	"github.com/kilianp07/eld/core/dispatch"
	"github.com/kilianp07/eld/core/dispatch/logging"
	coremetrics "github.com/kilianp07/eld/core/metrics"
	"github.com/kilianp07/eld/core/model"
	"github.com/kilianp07/eld/infra/logger"
	"github.com/kilianp07/eld/infra/metrics"
	"github.com/kilianp07/eld/infra/mqtt"
)

// Service wires the batch runner to its configured sinks.
type Service struct {
	Runner *dispatch.BatchRunner

	cfg       *config.Config
	store     logging.LogStore
	publisher *mqtt.PahoClient
	log       logger.Logger
}

// New creates a Service from the configuration. Optional components are only
// created when enabled.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Log); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	runner, err := dispatch.NewBatchRunner(cfg.Fleet, cfg.Dispatch, logger.New("batch"), sink)
	if err != nil {
		return nil, fmt.Errorf("batch runner: %w", err)
	}
	svc := &Service{Runner: runner, cfg: cfg, log: logg}

	if cfg.Logging.Enabled {
		store, err := logging.NewLogStore(cfg.Logging.ModuleConfig())
		if err != nil {
			return nil, fmt.Errorf("log store: %w", err)
		}
		svc.store = store
		runner.SetLogStore(store)
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			svc.closeStore()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.publisher = client
		runner.SetPublisher(client)
	}
	return svc, nil
}

// Fleet returns the configured generators.
func (s *Service) Fleet() model.Fleet { return s.cfg.Fleet }

// RunBatch dispatches every demand point.
func (s *Service) RunBatch(ctx context.Context, points []model.DemandPoint) (dispatch.Batch, error) {
	return s.Runner.Run(ctx, points)
}

// Handler returns the HTTP API: POST /api/dispatch, GET /api/dispatch/logs
// when the log store is enabled, and /metrics unless metrics have their own
// listener.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/dispatch", dispatchapi.NewDispatchHandler(s.cfg.Fleet, logger.New("api")))
	if s.store != nil {
		mux.Handle("/api/dispatch/logs", dispatchapi.NewLogHandler(s.store, s.cfg.API.Token))
	}
	if s.separateMetrics() == "" {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

func (s *Service) separateMetrics() string {
	if addr := s.cfg.Metrics.ListenAddr; addr != "" && addr != s.cfg.API.Addr {
		return addr
	}
	return ""
}

// Serve runs the HTTP API until the context is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if addr := s.separateMetrics(); addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("serving dispatch API on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	return s.closeStore()
}

func (s *Service) closeStore() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
