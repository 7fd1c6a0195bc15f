// cmd/estimator/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"property-estimator/internal/common/config"
	"property-estimator/internal/common/database"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/observability"
	"property-estimator/internal/form"
	"property-estimator/internal/predictor"
	"property-estimator/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (defaults to ./configs/config.yaml)")
	showInfo := flag.Bool("info", false, "Print prediction service health and model details, then exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// prompts own stdout
	output := cfg.Logging.Output
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("estimator")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := predictor.NewClient(
		cfg.Predictor.BaseURL,
		config.GetDuration(cfg.Predictor.Timeout),
		log,
		predictor.WithTracer(obs.Tracer()),
	)

	if *showInfo {
		if err := printServiceInfo(ctx, client); err != nil {
			zapLog.Error("prediction service unavailable", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	var predictions form.PredictionClient = client
	if cfg.Cache.Enabled {
		redisClient, err := database.NewRedis(cfg.Redis)
		if err != nil {
			zapLog.Warn("option cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			predictions = predictor.NewCachedClient(client, redisClient.GetClient(),
				cfg.Cache.Key, config.GetDuration(cfg.Cache.TTL), log)
		}
	}

	ctrl := form.NewController(predictions, form.WithLogger(log))
	err = tui.NewEstimator(tui.NewSurveyDriver(), ctrl, log).Run(ctx)
	switch {
	case err == nil, errors.Is(err, tui.ErrAborted), errors.Is(err, context.Canceled):
		return
	default:
		zapLog.Error("estimator stopped", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func printServiceInfo(ctx context.Context, client *predictor.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Service:      %s\n", health.Status)
	fmt.Printf("Model loaded: %t\n", health.ModelLoaded)
	if health.ModelName != "" {
		fmt.Printf("Model:        %s\n", health.ModelName)
	}

	info, err := client.ModelInfo(ctx)
	if err != nil {
		return err
	}
	if info.Accuracy != nil {
		fmt.Printf("Accuracy:     %v\n", info.Accuracy)
	}
	if len(info.Features) > 0 {
		fmt.Printf("Features:     %d\n", len(info.Features))
		for _, f := range info.Features {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}
