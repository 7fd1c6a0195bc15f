// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"property-estimator/internal/common/camunda"
	"property-estimator/internal/common/config"
	"property-estimator/internal/common/database"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/observability"
	"property-estimator/internal/form"
	"property-estimator/internal/predictor"

	epp "property-estimator/internal/workers/estimation/estimate-property-price"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	// --- Zeebe ---
	camundaClient, err := camunda.NewClient(cfg.Camunda)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Prediction service ---
	client := predictor.NewClient(
		cfg.Predictor.BaseURL,
		config.GetDuration(cfg.Predictor.Timeout),
		log,
		predictor.WithTracer(obs.Tracer()),
	)
	var predictions form.PredictionClient = client

	var redisClient *database.RedisClient
	if cfg.Cache.Enabled {
		redisClient, err = database.NewRedis(cfg.Redis)
		if err != nil {
			zapLog.Warn("option cache disabled", zap.Error(err))
		} else {
			predictions = predictor.NewCachedClient(client, redisClient.GetClient(),
				cfg.Cache.Key, config.GetDuration(cfg.Cache.TTL), log)
		}
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker

	{
		taskType := epp.TaskType
		handler, err := epp.NewHandler(epp.HandlerOptions{
			AppConfig:     cfg,
			Client:        predictions,
			Logger:        log,
			Observability: obs,
		})
		if err != nil {
			zapLog.Fatal("failed to create estimate-property-price handler", zap.Error(err))
		}
		if handler.IsEnabled() {
			w := camunda.NewWorker(camundaClient.GetClient(), camunda.WorkerOptions{
				TaskType:      taskType,
				MaxJobsActive: handler.GetConfig().MaxJobsActive,
				Timeout:       handler.GetConfig().Timeout,
			}, handler, log)
			w.Start()
			workers = append(workers, w)
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := camundaClient.HealthCheck(r.Context()); err != nil {
			log.Warn("readiness check failed", map[string]interface{}{"error": err.Error()})
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()); err != nil {
				log.Warn("option cache unreachable", map[string]interface{}{"error": err.Error()})
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLog.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
