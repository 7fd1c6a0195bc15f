// Package predictor talks to the remote price prediction service.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "property-estimator/internal/common/errors"
	httpclient "property-estimator/internal/common/http"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/metrics"
	"property-estimator/internal/common/validation"
	"property-estimator/internal/form"
	"property-estimator/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	EndpointPredict   = "/predict"
	EndpointOptions   = "/options"
	EndpointHealth    = "/health"
	EndpointModelInfo = "/model-info"

	serviceName = "prediction-service"
)

type Client struct {
	http   *httpclient.Client
	tracer trace.Tracer
	log    logger.Logger
}

type Option func(*Client)

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &Client{
		http:   httpclient.NewClient(baseURL, timeout, log),
		tracer: otel.Tracer("property-estimator/predictor"),
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ form.PredictionClient = (*Client)(nil)

// FetchOptions returns the option catalog. Missing collections come back
// empty, never nil.
func (c *Client) FetchOptions(ctx context.Context) (models.OptionCatalog, error) {
	ctx, span := c.startSpan(ctx, EndpointOptions)
	defer span.End()

	resp, err := c.do(ctx, span, http.MethodGet, EndpointOptions, nil)
	if err != nil {
		return models.EmptyCatalog(), recordErr(span, apperrors.NewOptionsUnavailableError(err))
	}
	if err := checkSchema(validation.SchemaOptions, resp.Body); err != nil {
		return models.EmptyCatalog(), recordErr(span, apperrors.NewOptionsUnavailableError(err))
	}

	var catalog models.OptionCatalog
	if err := json.Unmarshal(resp.Body, &catalog); err != nil {
		return models.EmptyCatalog(), recordErr(span, apperrors.NewOptionsUnavailableError(err))
	}
	if catalog.Locations == nil {
		catalog.Locations = map[string][]string{}
	}
	if catalog.PropertyTypes == nil {
		catalog.PropertyTypes = []string{}
	}

	span.SetAttributes(
		attribute.Int("catalog.states", len(catalog.Locations)),
		attribute.Int("catalog.property_types", len(catalog.PropertyTypes)),
	)
	return catalog, nil
}

// Predict requests an estimate for input. Failures are *errors.StandardError
// values whose Message is fit to show the user.
func (c *Client) Predict(ctx context.Context, input form.Normalized) (*models.PredictionResult, error) {
	ctx, span := c.startSpan(ctx, EndpointPredict)
	defer span.End()

	resp, err := c.do(ctx, span, http.MethodPost, EndpointPredict, input)
	if err != nil {
		return nil, recordErr(span, predictionError(err))
	}
	if err := checkSchema(validation.SchemaPrediction, resp.Body); err != nil {
		return nil, recordErr(span, apperrors.NewPredictionInvalidResponseError(err.Error()))
	}

	var result models.PredictionResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, recordErr(span, apperrors.NewPredictionInvalidResponseError(err.Error()))
	}

	span.SetAttributes(attribute.Float64("prediction.price", result.PredictedPrice))
	return &result, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	ctx, span := c.startSpan(ctx, EndpointHealth)
	defer span.End()

	resp, err := c.do(ctx, span, http.MethodGet, EndpointHealth, nil)
	if err != nil {
		return nil, recordErr(span, serviceError(err))
	}
	if err := checkSchema(validation.SchemaHealth, resp.Body); err != nil {
		return nil, recordErr(span, apperrors.NewExternalServiceError(serviceName, err))
	}

	var status models.HealthStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, recordErr(span, apperrors.NewExternalServiceError(serviceName, err))
	}
	return &status, nil
}

func (c *Client) ModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	ctx, span := c.startSpan(ctx, EndpointModelInfo)
	defer span.End()

	resp, err := c.do(ctx, span, http.MethodGet, EndpointModelInfo, nil)
	if err != nil {
		return nil, recordErr(span, serviceError(err))
	}

	var info models.ModelInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, recordErr(span, apperrors.NewExternalServiceError(serviceName, err))
	}
	return &info, nil
}

func (c *Client) startSpan(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "predictor "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", serviceName),
			attribute.String("endpoint", endpoint),
		),
	)
}

func (c *Client) do(ctx context.Context, span trace.Span, method, endpoint string, body interface{}) (*httpclient.Response, error) {
	start := time.Now()

	var (
		resp *httpclient.Response
		err  error
	)
	if method == http.MethodPost {
		resp, err = c.http.PostJSON(ctx, endpoint, body)
	} else {
		resp, err = c.http.GetJSON(ctx, endpoint)
	}

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
		span.SetAttributes(
			attribute.Int("http.status_code", resp.StatusCode),
			attribute.String("request.id", resp.RequestID),
		)
	}
	metrics.PredictionRequests.WithLabelValues(endpoint, status).Inc()
	metrics.PredictionRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	return resp, err
}

func recordErr(span trace.Span, err *apperrors.StandardError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Code))
	return err
}

func checkSchema(name string, body []byte) error {
	result, err := validation.ValidateResponse(name, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("response does not match %s schema: %s", name, result.Summary())
	}
	return nil
}

func predictionError(err error) *apperrors.StandardError {
	if httpclient.IsTimeout(err) {
		return apperrors.NewPredictionTimeoutError(err)
	}
	var respErr *httpclient.ResponseError
	if errors.As(err, &respErr) {
		return apperrors.NewPredictionFailedError(errorMessage(respErr.Body), respErr.StatusCode, err)
	}
	return apperrors.NewPredictionFailedError("", 0, err)
}

func serviceError(err error) *apperrors.StandardError {
	if httpclient.IsTimeout(err) {
		return apperrors.NewTimeoutError(serviceName, err)
	}
	return apperrors.NewExternalServiceError(serviceName, err)
}

// errorMessage pulls the service's explanation out of an error body:
// detail.message first, then a top-level message.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message interface{}     `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	var detail struct {
		Message interface{} `json:"message"`
	}
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil {
		if msg, ok := detail.Message.(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	if msg, ok := payload.Message.(string); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	return ""
}
