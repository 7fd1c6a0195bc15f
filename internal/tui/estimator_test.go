package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"property-estimator/internal/common/logger"
	"property-estimator/internal/form"
	"property-estimator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
	prompts      []string
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) output() string {
	return strings.Join(s.infoMessages, "\n")
}

type fakeClient struct {
	catalog    models.OptionCatalog
	catalogErr error
	results    []*models.PredictionResult
	errs       []error
	calls      []form.Normalized
}

func (f *fakeClient) FetchOptions(context.Context) (models.OptionCatalog, error) {
	return f.catalog, f.catalogErr
}

func (f *fakeClient) Predict(_ context.Context, input form.Normalized) (*models.PredictionResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, input)
	var res *models.PredictionResult
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func run(t *testing.T, driver *stubDriver, client *fakeClient) error {
	t.Helper()
	ctrl := form.NewController(client, form.WithLogger(logger.NewTestLogger(t)))
	return NewEstimator(driver, ctrl, logger.NewTestLogger(t)).Run(context.Background())
}

func TestRun_WithCatalogSelects(t *testing.T) {
	client := &fakeClient{
		catalog: models.OptionCatalog{
			Locations:     map[string][]string{"Karnataka": {"Bengaluru"}, "Maharashtra": {"Mumbai", "Pune"}},
			PropertyTypes: []string{"Apartment", "Independent House", "Villa"},
		},
		results: []*models.PredictionResult{{
			PredictedPrice:     7500000,
			ModelUsed:          "Random Forest Pro",
			ConfidenceInterval: &models.ConfidenceInterval{Lower: 7125000, Upper: 7875000},
		}},
	}
	driver := &stubDriver{
		inputs:    []string{"2500", "3", "2.5", "2010"},
		selectIdx: []int{1, 1, 0},
		confirm:   []bool{true, true, false, false},
	}

	require.NoError(t, run(t, driver, client))

	require.Len(t, client.calls, 1)
	got := client.calls[0]
	assert.Equal(t, "Maharashtra", got.State)
	assert.Equal(t, "Pune", got.Location)
	assert.Equal(t, "Apartment", got.PropertyType)
	assert.Equal(t, 2500.0, got.Area)
	assert.Equal(t, 1, got.Parking)
	assert.Equal(t, 1, got.ModularKitchen)
	assert.Equal(t, 0, got.DiningHall)

	out := driver.output()
	assert.Contains(t, out, "Estimated price: ₹75,00,000")
	assert.Contains(t, out, "Likely range: ₹71,25,000 to ₹78,75,000")
	assert.Contains(t, out, "Model: Random Forest Pro")
}

func TestRun_ReasksOnlyInvalidFields(t *testing.T) {
	client := &fakeClient{
		catalogErr: errors.New("connection refused"),
		results:    []*models.PredictionResult{{PredictedPrice: 1500000}},
	}
	driver := &stubDriver{
		inputs:  []string{"-5", "3", "2.5", "Maharashtra", "Pune", "Apartment", "2010", "1200"},
		confirm: []bool{false, false, false, false},
	}

	require.NoError(t, run(t, driver, client))

	require.Len(t, client.calls, 1)
	assert.Equal(t, 1200.0, client.calls[0].Area)

	out := driver.output()
	assert.Contains(t, out, "Form options are unavailable")
	assert.Contains(t, out, "Living Area (sqft): Enter a valid area")
	assert.NotContains(t, out, "Bedrooms:")
	assert.Contains(t, out, "₹15,00,000")
	assert.Equal(t, 8, driver.inputPos)
}

func TestRun_StateRetryAlsoAsksCity(t *testing.T) {
	client := &fakeClient{
		catalogErr: errors.New("connection refused"),
		results:    []*models.PredictionResult{{PredictedPrice: 100}},
	}
	driver := &stubDriver{
		inputs:  []string{"1000", "2", "1", " ", "Pune", "Villa", "2001", "Maharashtra", "Pune"},
		confirm: []bool{false, false, false, false},
	}

	require.NoError(t, run(t, driver, client))
	require.Len(t, client.calls, 1)
	assert.Equal(t, "Maharashtra", client.calls[0].State)
	assert.Equal(t, "Pune", client.calls[0].Location)
}

func TestRun_PredictionFailureShowsMessage(t *testing.T) {
	client := &fakeClient{
		errs: []error{errors.New("Service unavailable")},
	}
	driver := &stubDriver{
		inputs:  []string{"2500", "3", "2.5", "Maharashtra", "Pune", "Apartment", "2010"},
		confirm: []bool{false, false, false, false, false},
	}

	require.NoError(t, run(t, driver, client))

	assert.Contains(t, driver.output(), "✗ Service unavailable")
	assert.Contains(t, driver.prompts, "Try again?")
	assert.Len(t, client.calls, 1)
}

func TestRun_AnotherEstimateResetsDraft(t *testing.T) {
	client := &fakeClient{
		catalogErr: errors.New("down"),
		results:    []*models.PredictionResult{{PredictedPrice: 1}, {PredictedPrice: 2}},
	}
	driver := &stubDriver{
		inputs: []string{
			"2500", "3", "2.5", "Maharashtra", "Pune", "Apartment", "2010",
			"900", "1", "1", "Karnataka", "Mysuru", "Villa", "1995",
		},
		confirm: []bool{true, false, false, true, false, false, false, false},
	}

	require.NoError(t, run(t, driver, client))
	require.Len(t, client.calls, 2)
	assert.Equal(t, 1, client.calls[0].Parking)
	assert.Equal(t, 0, client.calls[1].Parking)
	assert.Equal(t, "Mysuru", client.calls[1].Location)
}

func TestRun_Abort(t *testing.T) {
	driver := &abortingDriver{stubDriver: &stubDriver{}}
	client := &fakeClient{}

	ctrl := form.NewController(client)
	err := NewEstimator(driver, ctrl, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, client.calls)
}

type abortingDriver struct {
	*stubDriver
}

func (a *abortingDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}

func TestWithDependents(t *testing.T) {
	assert.Equal(t,
		[]form.Field{form.FieldArea, form.FieldState, form.FieldLocation},
		withDependents([]form.Field{form.FieldArea, form.FieldState}))
	assert.Equal(t,
		[]form.Field{form.FieldState, form.FieldLocation},
		withDependents([]form.Field{form.FieldState, form.FieldLocation}))
	assert.Equal(t,
		[]form.Field{form.FieldYearBuilt},
		withDependents([]form.Field{form.FieldYearBuilt}))
}
