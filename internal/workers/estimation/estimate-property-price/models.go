package estimatepropertyprice

import "property-estimator/internal/models"

// Input holds the raw property fields of a job, keyed by wire field name.
// Values may be strings, numbers or booleans.
type Input struct {
	Property map[string]interface{} `json:"property"`
}

type Output struct {
	IsValid            bool                       `json:"isValid"`
	PredictedPrice     float64                    `json:"predictedPrice"`
	ConfidenceInterval *models.ConfidenceInterval `json:"confidenceInterval,omitempty"`
	ModelUsed          string                     `json:"modelUsed,omitempty"`
}

func (o *Output) variables() map[string]interface{} {
	vars := map[string]interface{}{
		"isValid":        o.IsValid,
		"predictedPrice": o.PredictedPrice,
		"modelUsed":      o.ModelUsed,
	}
	if o.ConfidenceInterval != nil {
		vars["confidenceInterval"] = map[string]interface{}{
			"lower": o.ConfidenceInterval.Lower,
			"upper": o.ConfidenceInterval.Upper,
		}
	}
	return vars
}
