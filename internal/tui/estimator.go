// Package tui runs the property estimate form in a terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"property-estimator/internal/common/logger"
	"property-estimator/internal/form"
)

// promptOrder is the order fields are asked in: the state comes before the
// city because the city choices depend on it.
var promptOrder = []form.Field{
	form.FieldArea,
	form.FieldBedrooms,
	form.FieldBathrooms,
	form.FieldState,
	form.FieldLocation,
	form.FieldPropertyType,
	form.FieldYearBuilt,
	form.FieldParking,
	form.FieldModularKitchen,
	form.FieldDiningHall,
}

var placeholders = map[form.Field]string{
	form.FieldArea:      "e.g., 2500",
	form.FieldBedrooms:  "e.g., 3",
	form.FieldBathrooms: "e.g., 2.5 (half steps allowed)",
	form.FieldYearBuilt: "e.g., 2010",
}

// Estimator drives a form.Controller through a PromptDriver.
type Estimator struct {
	driver  PromptDriver
	ctrl    *form.Controller
	log     logger.Logger
	changes *form.Debouncer[form.Draft]
}

func NewEstimator(driver PromptDriver, ctrl *form.Controller, log logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	e := &Estimator{driver: driver, ctrl: ctrl, log: log}
	e.changes = form.Debounce(250*time.Millisecond, func(d form.Draft) {
		e.log.Debug("Draft updated", map[string]interface{}{
			"state":        d.State,
			"location":     d.Location,
			"propertyType": d.PropertyType,
		})
	})
	return e
}

// Run loads the options and then collects and submits estimates until the
// user declines another. It returns ErrAborted on interrupt.
func (e *Estimator) Run(ctx context.Context) error {
	defer e.changes.Flush()

	e.ctrl.Initialize(ctx)
	if len(e.ctrl.States()) == 0 {
		e.info(ctx, "Form options are unavailable; enter state, city and property type as text.")
	}

	for {
		if err := e.promptFields(ctx, promptOrder); err != nil {
			return err
		}
		if err := e.submit(ctx); err != nil {
			return err
		}

		again, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Estimate another property?", Default: true})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		e.ctrl.Reset()
	}
}

func (e *Estimator) submit(ctx context.Context) error {
	for {
		err := e.ctrl.Submit(ctx)
		state := e.ctrl.Snapshot()

		switch {
		case err == nil:
			e.showResult(ctx, state)
			return nil

		case errors.Is(err, form.ErrValidationFailed):
			e.info(ctx, "Please fix the following:")
			var retry []form.Field
			for _, f := range promptOrder {
				if msg, ok := state.Errors[f]; ok {
					e.info(ctx, fmt.Sprintf("  %s: %s", f.Label(), msg))
					retry = append(retry, f)
				}
			}
			if err := e.promptFields(ctx, withDependents(retry)); err != nil {
				return err
			}

		case errors.Is(err, form.ErrSubmissionInFlight):
			return err

		default:
			e.info(ctx, "✗ "+state.SubmitError)
			again, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
			if err != nil {
				return err
			}
			if !again {
				return nil
			}
		}
	}
}

// withDependents adds the city whenever the state is re-asked, since a new
// state clears it.
func withDependents(fields []form.Field) []form.Field {
	hasState, hasLocation := false, false
	for _, f := range fields {
		hasState = hasState || f == form.FieldState
		hasLocation = hasLocation || f == form.FieldLocation
	}
	if !hasState || hasLocation {
		return fields
	}
	out := make([]form.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, f)
		if f == form.FieldState {
			out = append(out, form.FieldLocation)
		}
	}
	return out
}

func (e *Estimator) promptFields(ctx context.Context, fields []form.Field) error {
	for _, f := range fields {
		value, err := e.ask(ctx, f)
		if err != nil {
			return err
		}
		if err := e.ctrl.SetField(f, value); err != nil {
			return err
		}
		e.changes.Call(e.ctrl.Snapshot().Draft)
	}
	return nil
}

func (e *Estimator) ask(ctx context.Context, f form.Field) (string, error) {
	current := e.ctrl.Snapshot().Draft.Get(f)

	if f.IsFlag() {
		yes, err := e.driver.Confirm(ctx, ConfirmConfig{Message: f.Label() + "?", Default: current == "1"})
		if err != nil {
			return "", err
		}
		if yes {
			return "1", nil
		}
		return "0", nil
	}

	var options []string
	switch f {
	case form.FieldState:
		options = e.ctrl.States()
	case form.FieldLocation:
		options = e.ctrl.AvailableCities()
	case form.FieldPropertyType:
		options = e.ctrl.PropertyTypes()
	}

	if len(options) > 0 {
		idx, err := e.driver.Select(ctx, SelectConfig{
			Message:      f.Label() + ":",
			Options:      options,
			DefaultIndex: indexOf(options, current),
			PageSize:     10,
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(options) {
			return "", nil
		}
		return options[idx], nil
	}

	return e.driver.Input(ctx, InputConfig{
		Message: f.Label() + ":",
		Default: current,
		Help:    placeholders[f],
	})
}

func (e *Estimator) showResult(ctx context.Context, state form.State) {
	r := state.Result
	if r == nil {
		return
	}
	lines := []string{"Estimated price: " + form.FormatINR(r.PredictedPrice)}
	if r.ConfidenceInterval != nil {
		lines = append(lines, fmt.Sprintf("Likely range: %s to %s",
			form.FormatINR(r.ConfidenceInterval.Lower), form.FormatINR(r.ConfidenceInterval.Upper)))
	}
	if r.ModelUsed != "" {
		lines = append(lines, "Model: "+r.ModelUsed)
	}
	e.info(ctx, strings.Join(lines, "\n"))
}

func (e *Estimator) info(ctx context.Context, msg string) {
	if err := e.driver.Info(ctx, msg); err != nil {
		e.log.Warn("Failed to write to terminal", map[string]interface{}{"error": err})
	}
}
