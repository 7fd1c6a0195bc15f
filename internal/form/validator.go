package form

import (
	"sort"
	"time"
)

const (
	MaxArea        = 50000
	MaxBedrooms    = 20
	MaxBathrooms   = 20
	MinYearBuilt   = 1800
	YearBuiltAhead = 5
)

// Field error messages.
const (
	MsgAreaInvalid        = "Enter a valid area"
	MsgAreaTooLarge       = "Area exceeds reasonable limit"
	MsgBedroomsInvalid    = "Invalid bedroom count"
	MsgBedroomsTooMany    = "Max 20 bedrooms allowed"
	MsgBathroomsInvalid   = "Invalid bathroom count"
	MsgBathroomsTooMany   = "Max 20 bathrooms allowed"
	MsgLocationRequired   = "Location is required"
	MsgStateRequired      = "State is required"
	MsgPropertyTypeNeeded = "Select property type"
	MsgYearTooEarly       = "Year must be 1800 or later"
	MsgYearInvalid        = "Invalid construction year"
)

// ErrorMap maps a field to its current complaint. A missing key means valid.
type ErrorMap map[Field]string

// Fields returns the failing fields in sorted order.
func (m ErrorMap) Fields() []Field {
	out := make([]Field, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings converts m to plain string keys for wire use.
func (m ErrorMap) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for f, msg := range m {
		out[string(f)] = msg
	}
	return out
}

func (m ErrorMap) clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for f, msg := range m {
		out[f] = msg
	}
	return out
}

// Validator applies the field rules. Now supplies the current year and
// defaults to time.Now.
type Validator struct {
	Now func() time.Time
}

// Validate runs every rule against n and returns the full set of failures.
func (v Validator) Validate(n Normalized) (bool, ErrorMap) {
	errs := ErrorMap{}

	switch {
	case !n.Parsed(FieldArea) || n.Area <= 0:
		errs[FieldArea] = MsgAreaInvalid
	case n.Area > MaxArea:
		errs[FieldArea] = MsgAreaTooLarge
	}

	switch {
	case !n.Parsed(FieldBedrooms) || n.Bedrooms < 0:
		errs[FieldBedrooms] = MsgBedroomsInvalid
	case n.Bedrooms > MaxBedrooms:
		errs[FieldBedrooms] = MsgBedroomsTooMany
	}

	switch {
	case !n.Parsed(FieldBathrooms) || n.Bathrooms < 0:
		errs[FieldBathrooms] = MsgBathroomsInvalid
	case n.Bathrooms > MaxBathrooms:
		errs[FieldBathrooms] = MsgBathroomsTooMany
	}

	if n.Location == "" {
		errs[FieldLocation] = MsgLocationRequired
	}
	if n.State == "" {
		errs[FieldState] = MsgStateRequired
	}
	if n.PropertyType == "" {
		errs[FieldPropertyType] = MsgPropertyTypeNeeded
	}

	switch {
	case !n.Parsed(FieldYearBuilt) || n.YearBuilt < MinYearBuilt:
		errs[FieldYearBuilt] = MsgYearTooEarly
	case n.YearBuilt > v.currentYear()+YearBuiltAhead:
		errs[FieldYearBuilt] = MsgYearInvalid
	}

	return len(errs) == 0, errs
}

func (v Validator) currentYear() int {
	if v.Now != nil {
		return v.Now().Year()
	}
	return time.Now().Year()
}

// Validate checks n against the wall clock.
func Validate(n Normalized) (bool, ErrorMap) {
	return Validator{}.Validate(n)
}
