package form

import (
	"math"
	"strconv"
	"strings"
)

// Normalized is the typed record that is validated and sent to the prediction
// service. Its JSON form is the service's request contract.
type Normalized struct {
	Area           float64 `json:"area"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      float64 `json:"bathrooms"`
	Location       string  `json:"location"`
	YearBuilt      int     `json:"year_built"`
	State          string  `json:"state"`
	PropertyType   string  `json:"property_type"`
	Parking        int     `json:"parking"`
	ModularKitchen int     `json:"modular_kitchen"`
	DiningHall     int     `json:"dining_hall"`

	// numeric fields whose text was not a finite number
	unparsed map[Field]bool
}

// Parsed reports whether the numeric field f held a usable number. Text fields
// always report true.
func (n Normalized) Parsed(f Field) bool {
	return !n.unparsed[f]
}

// MarkUnparsed flags f as missing. It is used when building a record from a
// source other than a Draft.
func (n *Normalized) MarkUnparsed(f Field) {
	if n.unparsed == nil {
		n.unparsed = map[Field]bool{}
	}
	n.unparsed[f] = true
}

// Normalize converts d into a fresh Normalized record.
func Normalize(d Draft) Normalized {
	var n Normalized

	if v, ok := parseFloat(d.Area); ok {
		n.Area = v
	} else {
		n.MarkUnparsed(FieldArea)
	}
	if v, ok := parseInt(d.Bedrooms); ok {
		n.Bedrooms = v
	} else {
		n.MarkUnparsed(FieldBedrooms)
	}
	if v, ok := parseFloat(d.Bathrooms); ok {
		n.Bathrooms = v
	} else {
		n.MarkUnparsed(FieldBathrooms)
	}
	if v, ok := parseInt(d.YearBuilt); ok {
		n.YearBuilt = v
	} else {
		n.MarkUnparsed(FieldYearBuilt)
	}

	n.Location = strings.TrimSpace(d.Location)
	n.State = strings.TrimSpace(d.State)
	n.PropertyType = strings.TrimSpace(d.PropertyType)

	n.Parking = parseFlag(d.Parking)
	n.ModularKitchen = parseFlag(d.ModularKitchen)
	n.DiningHall = parseFlag(d.DiningHall)

	return n
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt accepts "3" and "3.7" (truncated to 3). Values outside the int32
// range are clamped to it so range checks still apply.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32, true
	case f < math.MinInt32:
		return math.MinInt32, true
	}
	return int(math.Trunc(f)), true
}

func parseFlag(s string) int {
	v, ok := parseInt(s)
	if !ok || v == 0 {
		return 0
	}
	return 1
}
