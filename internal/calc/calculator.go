package calc

// FieldType enumerates the input field types a calculator can declare.
type FieldType string

const (
	FieldFloat  FieldType = "float"
	FieldInt    FieldType = "int"
	FieldBool   FieldType = "bool"
	FieldSelect FieldType = "select"
	FieldText   FieldType = "text"
)

// InputField describes a single input a calculator accepts.
type InputField struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Unit        string    `json:"unit,omitempty"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	MinValue    *float64  `json:"min_value,omitempty"`
	MaxValue    *float64  `json:"max_value,omitempty"`
	Options     []string  `json:"options,omitempty"` // for select type
	Default     any       `json:"default_value,omitempty"`
}

// Info is the static metadata for a calculator. Immutable once registered.
type Info struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	InputFields []InputField `json:"input_fields"`
}

// Inputs is the raw field name → value mapping supplied by the caller.
type Inputs map[string]any

// Results is the computed output tree. Values are numbers, strings, booleans,
// nested Results, or slices of those; it must serialize cleanly to JSON.
type Results map[string]any

// Calculator is the contract every calculator implements.
//
// Info and Example are pure; Calculate must not perform I/O or mutate shared
// state, so instances are safe for concurrent use.
type Calculator interface {
	// Info returns the calculator's static metadata.
	Info() Info

	// Calculate validates the inputs against the declared fields plus any
	// calculator-local domain checks and computes the results.
	Calculate(inputs Inputs) (Results, error)

	// Example returns a canonical worked example. Feeding the returned inputs
	// back through Calculate reproduces the returned results.
	Example() (Inputs, Results)
}
