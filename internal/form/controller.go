package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "property-estimator/internal/common/errors"
	"property-estimator/internal/common/logger"
	"property-estimator/internal/common/metrics"
	"property-estimator/internal/models"
)

var (
	ErrUnknownField       = errors.New("unknown form field")
	ErrValidationFailed   = errors.New("form has invalid fields")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// PredictionClient is the remote service the form submits to.
type PredictionClient interface {
	FetchOptions(ctx context.Context) (models.OptionCatalog, error)
	Predict(ctx context.Context, input Normalized) (*models.PredictionResult, error)
}

// State is a point-in-time copy of everything a front end renders.
type State struct {
	Draft       Draft
	Errors      ErrorMap
	Result      *models.PredictionResult
	SubmitError string
	Submitting  bool
}

type Option func(*Controller)

func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validator = v }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller owns one form's draft and drives its submission. It is safe for
// concurrent use; the lock is released while the prediction call runs.
type Controller struct {
	client    PredictionClient
	validator Validator
	log       logger.Logger

	mu        sync.Mutex
	catalog   models.OptionCatalog
	draft     Draft
	errs      ErrorMap
	result    *models.PredictionResult
	submitErr string
	inFlight  bool
}

func NewController(client PredictionClient, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		log:     logger.NewNoOpLogger(),
		catalog: models.EmptyCatalog(),
		draft:   NewDraft(),
		errs:    ErrorMap{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize loads the option catalog. A failed fetch leaves the catalog empty
// and the form usable.
func (c *Controller) Initialize(ctx context.Context) {
	catalog, err := c.client.FetchOptions(ctx)
	if err != nil {
		c.log.Warn("Failed to load form options, continuing with empty catalog", map[string]interface{}{
			"error": err,
		})
		catalog = models.EmptyCatalog()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog.Locations = map[string][]string{}
	for state, cities := range catalog.Locations {
		c.catalog.Locations[state] = append([]string{}, cities...)
	}
	if len(catalog.PropertyTypes) > 0 {
		c.catalog.PropertyTypes = append([]string{}, catalog.PropertyTypes...)
	}

	c.log.Debug("Form options loaded", map[string]interface{}{
		"states":        len(c.catalog.Locations),
		"propertyTypes": len(c.catalog.PropertyTypes),
	})
}

// SetField stores value for f and clears f's error. Changing the state clears
// the selected city.
func (c *Controller) SetField(f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.draft.set(f, value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	if f == FieldState {
		c.draft.Location = ""
	}
	delete(c.errs, f)
	return nil
}

// Submit validates the draft and, when valid, requests a prediction. It
// returns ErrValidationFailed when any field is invalid (no request is made),
// ErrSubmissionInFlight when another Submit has not finished, or the
// prediction error.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		metrics.FormSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return ErrSubmissionInFlight
	}

	c.result = nil
	c.submitErr = ""

	input := Normalize(c.draft)
	ok, errs := c.validator.Validate(input)
	if !ok {
		c.errs = errs
		c.mu.Unlock()

		fields := make([]string, 0, len(errs))
		for _, f := range errs.Fields() {
			fields = append(fields, string(f))
		}
		metrics.RecordValidationErrors(fields)
		metrics.FormSubmissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		c.log.Debug("Form validation failed", map[string]interface{}{
			"fields": fields,
		})
		return ErrValidationFailed
	}

	c.inFlight = true
	c.mu.Unlock()

	result, err := c.client.Predict(ctx, input)
	if err == nil && result == nil {
		err = apperrors.NewPredictionInvalidResponseError("empty prediction result")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		c.submitErr = apperrors.UserMessage(err, apperrors.DefaultPredictionMessage)
		metrics.FormSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		c.log.Error("Prediction request failed", map[string]interface{}{
			"error":   err,
			"message": c.submitErr,
		})
		return err
	}

	c.result = result
	c.errs = ErrorMap{}
	metrics.FormSubmissions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.log.Info("Prediction received", map[string]interface{}{
		"predictedPrice": result.PredictedPrice,
		"modelUsed":      result.ModelUsed,
	})
	return nil
}

// Reset restores the initial draft and clears the result and all errors.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = NewDraft()
	c.result = nil
	c.errs = ErrorMap{}
	c.submitErr = ""
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Draft:       c.draft,
		Errors:      c.errs.clone(),
		SubmitError: c.submitErr,
		Submitting:  c.inFlight,
	}
	s.Result = c.result.Clone()
	return s
}

// States lists the known regions in sorted order.
func (c *Controller) States() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.States()
}

// AvailableCities lists the cities of the selected state, or none when no
// state is selected.
func (c *Controller) AvailableCities() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.State == "" {
		return []string{}
	}
	return c.catalog.Cities(c.draft.State)
}

func (c *Controller) PropertyTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.catalog.PropertyTypes...)
}
