package calc

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// ValidateInputs checks the raw inputs against the declared field list and
// returns a coerced copy: float fields become float64, int fields int,
// bool fields bool, select/text fields string. Optional fields that are
// absent or empty are omitted from the result.
func ValidateInputs(fields []InputField, inputs Inputs) (Inputs, error) {
	validated := make(Inputs, len(fields))

	for _, field := range fields {
		raw, present := inputs[field.Name]
		if !present || raw == nil || raw == "" {
			if field.Required {
				return nil, invalidInput(field.Name, "%s is required", field.Label)
			}
			continue
		}

		value, err := coerceValue(field, raw)
		if err != nil {
			return nil, err
		}

		if field.Type == FieldFloat || field.Type == FieldInt {
			num := toFloat(value)
			if field.MinValue != nil && num < *field.MinValue {
				return nil, invalidInput(field.Name, "%s must be >= %g", field.Label, *field.MinValue)
			}
			if field.MaxValue != nil && num > *field.MaxValue {
				return nil, invalidInput(field.Name, "%s must be <= %g", field.Label, *field.MaxValue)
			}
		}

		validated[field.Name] = value
	}

	return validated, nil
}

// coerceValue converts a raw JSON value (number, string or bool) into the
// field's declared Go type.
func coerceValue(field InputField, raw any) (any, error) {
	switch field.Type {
	case FieldFloat:
		f, ok := rawToFloat(raw)
		if !ok {
			return nil, invalidInput(field.Name, "%s must be a valid number", field.Label)
		}
		return f, nil

	case FieldInt:
		f, ok := rawToFloat(raw)
		if !ok || f != math.Trunc(f) {
			return nil, invalidInput(field.Name, "%s must be a valid integer", field.Label)
		}
		return int(f), nil

	case FieldBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, invalidInput(field.Name, "%s must be a valid boolean", field.Label)
			}
			return b, nil
		default:
			return nil, invalidInput(field.Name, "%s must be a valid boolean", field.Label)
		}

	case FieldSelect:
		s, ok := rawToString(raw)
		if !ok || !slices.Contains(field.Options, s) {
			return nil, invalidInput(field.Name, "%s must be one of: %s", field.Label, strings.Join(field.Options, ", "))
		}
		return s, nil

	case FieldText:
		s, ok := rawToString(raw)
		if !ok {
			return nil, invalidInput(field.Name, "%s must be a string", field.Label)
		}
		return s, nil
	}

	return raw, nil
}

// rawToFloat accepts JSON numbers, integer values and numeric strings.
func rawToFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func rawToString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		// Select options are often numeric ("90", "95"); accept JSON numbers.
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Typed accessors used by the calculators after validation.

func floatArg(inputs Inputs, name string) (float64, bool) {
	v, ok := inputs[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func intArg(inputs Inputs, name string) (int, bool) {
	v, ok := inputs[name]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

func stringArg(inputs Inputs, name string) (string, bool) {
	v, ok := inputs[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// roundTo rounds x to the given number of decimal places, the precision the
// API reports results with.
func roundTo(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}
