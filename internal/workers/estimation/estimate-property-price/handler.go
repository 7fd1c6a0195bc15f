package estimatepropertyprice

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"property-estimator/internal/common/config"
	"property-estimator/internal/common/errors"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/metrics"
	"property-estimator/internal/common/observability"
	"property-estimator/internal/common/validation"
	"property-estimator/internal/form"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const TaskType = "estimate-property-price"

// reportTimeout bounds the complete, fail or throw command sent once the job
// has been executed, independently of the job deadline.
const reportTimeout = 10 * time.Second

type Handler struct {
	config     *Config
	logger     logger.Logger
	client     form.PredictionClient
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Client        form.PredictionClient
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("prediction client is required for %s", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:     workerConfig,
		logger:     loggerInstance,
		client:     opts.Client,
		obs:        opts.Observability,
		errHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing property estimate", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
	cancel()

	reportCtx, cancelReport := context.WithTimeout(context.Background(), reportTimeout)
	defer cancelReport()

	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.obs.RecordJobProcessed(reportCtx, "failed")
		h.obs.RecordJobDuration(reportCtx, time.Since(startTime), "failed")
		h.errHandler.HandleJobError(reportCtx, client, job, err)
		return
	}

	h.completeJob(reportCtx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(reportCtx, "completed")
	h.obs.RecordJobDuration(reportCtx, time.Since(startTime), "completed")
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now(),
		}
	}

	result, err := validation.ValidateInput(validation.SchemaEstimateJob, variables)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &errors.StandardError{
			Code:      "VALIDATION_FAILED",
			Message:   "Input validation failed",
			Details:   result.Summary(),
			Retryable: false,
			Timestamp: time.Now(),
		}
	}

	property, _ := variables["property"].(map[string]interface{})
	return &Input{Property: property}, nil
}

// Execute runs one property through a fresh form controller: fields are set,
// validated and, when valid, sent for a prediction.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int("property.fields", len(input.Property)))
	defer span.End()

	ctrl := form.NewController(h.client, form.WithLogger(h.logger))

	for _, f := range fieldOrder() {
		raw, ok := input.Property[string(f)]
		if !ok {
			continue
		}
		if err := ctrl.SetField(f, fieldValue(raw)); err != nil {
			return nil, err
		}
	}
	for name := range input.Property {
		if _, ok := form.ParseField(name); !ok {
			h.logger.Debug("Ignoring unknown property field", map[string]interface{}{
				"field":  name,
				"worker": TaskType,
			})
		}
	}

	if err := ctrl.Submit(ctx); err != nil {
		stdErr := submitError(ctrl, err)
		span.RecordError(stdErr)
		span.SetStatus(codes.Error, string(stdErr.Code))
		return nil, stdErr
	}

	result := ctrl.Snapshot().Result
	span.SetAttributes(attribute.Float64("prediction.price", result.PredictedPrice))

	return &Output{
		IsValid:            true,
		PredictedPrice:     result.PredictedPrice,
		ConfidenceInterval: result.ConfidenceInterval,
		ModelUsed:          result.ModelUsed,
	}, nil
}

func submitError(ctrl *form.Controller, err error) *errors.StandardError {
	if stderrors.Is(err, form.ErrValidationFailed) {
		return errors.NewPropertyValidationFailedError(ctrl.Snapshot().Errors.Strings())
	}
	if stdErr, ok := errors.AsStandardError(err); ok {
		return stdErr
	}
	return errors.NewPredictionFailedError(errors.UserMessage(err, errors.DefaultPredictionMessage), 0, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.variables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Property estimate completed", map[string]interface{}{
		"jobKey":         job.GetKey(),
		"predictedPrice": output.PredictedPrice,
		"modelUsed":      output.ModelUsed,
		"worker":         TaskType,
	})
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

// fieldOrder puts state first so that setting it cannot clear a city that
// arrives in the same job.
func fieldOrder() []form.Field {
	order := []form.Field{form.FieldState}
	for _, f := range form.Fields() {
		if f != form.FieldState {
			order = append(order, f)
		}
	}
	return order
}

func fieldValue(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
