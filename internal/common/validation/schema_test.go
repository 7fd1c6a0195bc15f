package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResponse_Prediction(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"price only", `{"predicted_price": 7500000}`, true},
		{"full response", `{"predicted_price": 100.5, "model_used": "Random Forest Pro",
			"confidence_interval": {"lower": 95.5, "upper": 105.5}, "input_features": {"area": 1}}`, true},
		{"null interval", `{"predicted_price": 1, "confidence_interval": null}`, true},
		{"missing price", `{"model_used": "x"}`, false},
		{"price as string", `{"predicted_price": "75"}`, false},
		{"interval without upper", `{"predicted_price": 1, "confidence_interval": {"lower": 1}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateResponse(SchemaPrediction, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.Summary())
		})
	}
}

func TestValidateResponse_Options(t *testing.T) {
	result, err := ValidateResponse(SchemaOptions, []byte(`{
		"locations": {"Maharashtra": ["Pune", "Mumbai"]},
		"property_types": ["Apartment", "Villa"]
	}`))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateResponse(SchemaOptions, []byte(`{"locations": {"Maharashtra": "Pune"}}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Summary(), "Maharashtra")
}

func TestValidateResponse_Health(t *testing.T) {
	result, err := ValidateResponse(SchemaHealth, []byte(`{"status": "unhealthy", "model_loaded": false}`))
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateResponse_Errors(t *testing.T) {
	_, err := ValidateResponse("unknown", []byte(`{}`))
	assert.Error(t, err)

	_, err = ValidateResponse(SchemaPrediction, []byte(`not json`))
	assert.Error(t, err)
}

func TestValidateInput_EstimateJob(t *testing.T) {
	result, err := ValidateInput(SchemaEstimateJob, map[string]interface{}{
		"property": map[string]interface{}{"area": 2500.0, "state": "Maharashtra", "parking": true},
	})
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Summary())

	result, err = ValidateInput(SchemaEstimateJob, map[string]interface{}{"area": 2500.0})
	require.NoError(t, err)
	assert.False(t, result.Valid)

	result, err = ValidateInput(SchemaEstimateJob, map[string]interface{}{
		"property": map[string]interface{}{"area": []interface{}{1}},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)

	_, err = ValidateInput("missing", nil)
	assert.Error(t, err)
}
