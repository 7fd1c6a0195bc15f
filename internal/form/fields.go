// Package form holds the property estimate form: its draft state, the
// normalization and validation rules that gate submission, and the Controller
// that drives a submission against the prediction service.
package form

// Field names a form input. The value doubles as the wire key.
type Field string

const (
	FieldArea           Field = "area"
	FieldBedrooms       Field = "bedrooms"
	FieldBathrooms      Field = "bathrooms"
	FieldLocation       Field = "location"
	FieldYearBuilt      Field = "year_built"
	FieldState          Field = "state"
	FieldPropertyType   Field = "property_type"
	FieldParking        Field = "parking"
	FieldModularKitchen Field = "modular_kitchen"
	FieldDiningHall     Field = "dining_hall"
)

var allFields = []Field{
	FieldArea,
	FieldBedrooms,
	FieldBathrooms,
	FieldLocation,
	FieldYearBuilt,
	FieldState,
	FieldPropertyType,
	FieldParking,
	FieldModularKitchen,
	FieldDiningHall,
}

var fieldLabels = map[Field]string{
	FieldArea:           "Living Area (sqft)",
	FieldBedrooms:       "Bedrooms",
	FieldBathrooms:      "Bathrooms",
	FieldLocation:       "Location (City)",
	FieldYearBuilt:      "Year Built",
	FieldState:          "State",
	FieldPropertyType:   "Property Type",
	FieldParking:        "Parking",
	FieldModularKitchen: "Modular Kitchen",
	FieldDiningHall:     "Dining Hall",
}

// Fields returns every form field in wire order.
func Fields() []Field {
	return append([]Field(nil), allFields...)
}

// ParseField maps a wire key to its Field.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	_, ok := fieldLabels[f]
	return f, ok
}

func (f Field) String() string {
	return string(f)
}

// Label is the human-readable caption for f.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// IsFlag reports whether f is one of the yes/no amenity fields.
func (f Field) IsFlag() bool {
	switch f {
	case FieldParking, FieldModularKitchen, FieldDiningHall:
		return true
	}
	return false
}

// Draft is the raw text the user has entered. Flags hold "0" or "1".
type Draft struct {
	Area           string `json:"area"`
	Bedrooms       string `json:"bedrooms"`
	Bathrooms      string `json:"bathrooms"`
	Location       string `json:"location"`
	YearBuilt      string `json:"year_built"`
	State          string `json:"state"`
	PropertyType   string `json:"property_type"`
	Parking        string `json:"parking"`
	ModularKitchen string `json:"modular_kitchen"`
	DiningHall     string `json:"dining_hall"`
}

// NewDraft returns the initial draft: every text field empty, every flag "0".
func NewDraft() Draft {
	return Draft{
		Parking:        "0",
		ModularKitchen: "0",
		DiningHall:     "0",
	}
}

// Get returns the raw value of f, or "" for an unknown field.
func (d Draft) Get(f Field) string {
	if p := d.ref(f); p != nil {
		return *p
	}
	return ""
}

func (d *Draft) set(f Field, value string) bool {
	p := d.ref(f)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (d *Draft) ref(f Field) *string {
	switch f {
	case FieldArea:
		return &d.Area
	case FieldBedrooms:
		return &d.Bedrooms
	case FieldBathrooms:
		return &d.Bathrooms
	case FieldLocation:
		return &d.Location
	case FieldYearBuilt:
		return &d.YearBuilt
	case FieldState:
		return &d.State
	case FieldPropertyType:
		return &d.PropertyType
	case FieldParking:
		return &d.Parking
	case FieldModularKitchen:
		return &d.ModularKitchen
	case FieldDiningHall:
		return &d.DiningHall
	}
	return nil
}
