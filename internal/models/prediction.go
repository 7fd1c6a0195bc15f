package models

import (
	"sort"
)

// OptionCatalog is the reference data used to populate the form's choices.
type OptionCatalog struct {
	Locations     map[string][]string `json:"locations"`
	PropertyTypes []string            `json:"property_types"`
}

// EmptyCatalog is what the form falls back to when options cannot be fetched.
func EmptyCatalog() OptionCatalog {
	return OptionCatalog{
		Locations:     map[string][]string{},
		PropertyTypes: []string{},
	}
}

// States returns region names in sorted order.
func (c OptionCatalog) States() []string {
	states := make([]string, 0, len(c.Locations))
	for s := range c.Locations {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

// Cities returns a copy of the cities listed for state, in service order.
func (c OptionCatalog) Cities(state string) []string {
	cities, ok := c.Locations[state]
	if !ok {
		return []string{}
	}
	return append([]string(nil), cities...)
}

// Clone returns a deep copy.
func (c OptionCatalog) Clone() OptionCatalog {
	out := OptionCatalog{
		Locations:     make(map[string][]string, len(c.Locations)),
		PropertyTypes: append([]string{}, c.PropertyTypes...),
	}
	for k, v := range c.Locations {
		out.Locations[k] = append([]string{}, v...)
	}
	return out
}

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PredictionResult is the estimate returned by the prediction service.
type PredictionResult struct {
	PredictedPrice     float64                `json:"predicted_price"`
	ModelUsed          string                 `json:"model_used,omitempty"`
	ConfidenceInterval *ConfidenceInterval    `json:"confidence_interval,omitempty"`
	InputFeatures      map[string]interface{} `json:"input_features,omitempty"`
}

// Clone returns a deep copy. Nested JSON objects and arrays in InputFeatures
// are copied too.
func (r *PredictionResult) Clone() *PredictionResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.ConfidenceInterval != nil {
		ci := *r.ConfidenceInterval
		out.ConfidenceInterval = &ci
	}
	if r.InputFeatures != nil {
		out.InputFeatures = cloneValue(r.InputFeatures).(map[string]interface{})
	}
	return &out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// ModelInfo is the body of GET /model-info. Accuracy is reported either as a
// number or as "N/A".
type ModelInfo struct {
	ModelLoaded bool        `json:"model_loaded"`
	Accuracy    interface{} `json:"accuracy,omitempty"`
	Features    []string    `json:"features,omitempty"`
}
