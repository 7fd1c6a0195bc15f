package predictor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "property-estimator/internal/common/errors"
	httpclient "property-estimator/internal/common/http"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/form"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, opts ...Option) *Client {
	t.Helper()
	return NewClient(server.URL+"/api/v1", 2*time.Second, logger.NewTestLogger(t), opts...)
}

func scenarioAInput() form.Normalized {
	return form.Normalize(form.Draft{
		Area: "2500", Bedrooms: "3", Bathrooms: "2.5", Location: "Pune", YearBuilt: "2010",
		State: "Maharashtra", PropertyType: "Apartment", Parking: "1", ModularKitchen: "1", DiningHall: "0",
	})
}

func TestPredict_Success(t *testing.T) {
	var received map[string]interface{}
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predict", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(httpclient.RequestIDHeader))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"predicted_price": 7500000,
			"model_used": "Random Forest Pro",
			"confidence_interval": {"lower": 7125000, "upper": 7875000},
			"input_features": {"area": 2500}
		}`))
	})

	result, err := newTestClient(t, server).Predict(context.Background(), scenarioAInput())
	require.NoError(t, err)

	assert.Equal(t, 7500000.0, result.PredictedPrice)
	assert.Equal(t, "Random Forest Pro", result.ModelUsed)
	require.NotNil(t, result.ConfidenceInterval)
	assert.Equal(t, 7125000.0, result.ConfidenceInterval.Lower)
	assert.Equal(t, 7875000.0, result.ConfidenceInterval.Upper)

	assert.Equal(t, map[string]interface{}{
		"area": 2500.0, "bedrooms": 3.0, "bathrooms": 2.5, "location": "Pune", "year_built": 2010.0,
		"state": "Maharashtra", "property_type": "Apartment", "parking": 1.0, "modular_kitchen": 1.0,
		"dining_hall": 0.0,
	}, received)
}

func TestPredict_ErrorMessages(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		message   string
		retryable bool
	}{
		{"detail message", http.StatusBadRequest, `{"detail":{"error":"Invalid Data","message":"Area exceeds limit (100k sqft)"}}`, "Area exceeds limit (100k sqft)", false},
		{"top level message", http.StatusServiceUnavailable, `{"message":"Service unavailable"}`, "Service unavailable", true},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","area"],"msg":"field required"}]}`, apperrors.DefaultPredictionMessage, false},
		{"not json", http.StatusInternalServerError, `Internal Server Error`, apperrors.DefaultPredictionMessage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := newTestClient(t, server).Predict(context.Background(), scenarioAInput())
			require.Error(t, err)

			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodePredictionFailed, stdErr.Code)
			assert.Equal(t, tt.message, stdErr.Message)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Equal(t, tt.message, apperrors.UserMessage(err, "fallback"))
		})
	}
}

func TestPredict_InvalidResponse(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price": 10}`))
	})

	_, err := newTestClient(t, server).Predict(context.Background(), scenarioAInput())
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionInvalidResponse, stdErr.Code)
	assert.Contains(t, stdErr.Details, "predicted_price")
}

func TestPredict_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(server.URL, 20*time.Millisecond, nil)
	_, err := client.Predict(context.Background(), scenarioAInput())

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionTimeout, stdErr.Code)
	assert.Equal(t, apperrors.DefaultPredictionMessage, stdErr.Message)
}

func TestPredict_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second, nil).Predict(context.Background(), scenarioAInput())
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, apperrors.DefaultPredictionMessage, stdErr.Message)
}

func TestFetchOptions(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/options", r.URL.Path)
			_, _ = w.Write([]byte(`{"locations":{"Maharashtra":["Pune","Mumbai"]},"property_types":["Apartment","Independent House","Villa"]}`))
		})

		catalog, err := newTestClient(t, server).FetchOptions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Pune", "Mumbai"}, catalog.Locations["Maharashtra"])
		assert.Equal(t, []string{"Apartment", "Independent House", "Villa"}, catalog.PropertyTypes)
	})

	t.Run("missing collections become empty", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		catalog, err := newTestClient(t, server).FetchOptions(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, catalog.Locations)
		assert.NotNil(t, catalog.PropertyTypes)
	})

	t.Run("server error", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		catalog, err := newTestClient(t, server).FetchOptions(context.Background())
		stdErr, ok := apperrors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeOptionsUnavailable, stdErr.Code)
		assert.Empty(t, catalog.Locations)
		assert.NotNil(t, catalog.Locations)
	})
}

func TestHealthAndModelInfo(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/health":
			_, _ = w.Write([]byte(`{"status":"healthy","model_loaded":true,"model_name":"Random Forest Pro","timestamp":"2025-06-01T00:00:00Z"}`))
		case "/api/v1/model-info":
			_, _ = w.Write([]byte(`{"model_loaded":true,"accuracy":0.91,"features":["area","bedrooms"]}`))
		default:
			http.NotFound(w, r)
		}
	})
	client := newTestClient(t, server)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "Random Forest Pro", health.ModelName)

	info, err := client.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, info.ModelLoaded)
	assert.Equal(t, 0.91, info.Accuracy)
	assert.Equal(t, []string{"area", "bedrooms"}, info.Features)
}

func TestHealth_Failure(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newTestClient(t, server).Health(context.Background())
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExternalService, stdErr.Code)
}

func TestPredict_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/predict" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"predicted_price": 1}`))
	})
	client := newTestClient(t, server, WithTracer(tp.Tracer("test")))

	_, err := client.Predict(context.Background(), scenarioAInput())
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "predictor /predict", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "PREDICTION_FAILED", spans[0].Status().Description)
}
