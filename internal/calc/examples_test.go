package calc

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

// TestExamples_Reproducible verifies that every registered calculator's
// canonical example is reproduced by Calculate within 1e-9 relative tolerance
// on all numeric fields. The examples double as UI pre-fill and regression
// fixtures, so they must never drift from the implementation.
func TestExamples_Reproducible(t *testing.T) {
	for _, info := range DefaultRegistry().List() {
		t.Run(info.ID, func(t *testing.T) {
			c, err := DefaultRegistry().Get(info.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			exampleInputs, exampleResults := c.Example()
			if len(exampleInputs) == 0 {
				t.Fatal("Example() returned empty inputs")
			}

			results, err := c.Calculate(exampleInputs)
			if err != nil {
				t.Fatalf("Calculate(example inputs) error = %v", err)
			}

			compareResults(t, "", exampleResults, results)
		})
	}
}

// TestExamples_JSONRoundTrip checks that every example result serializes to
// JSON and back without loss beyond 1e-9 relative error, since results go to
// the wire as-is.
func TestExamples_JSONRoundTrip(t *testing.T) {
	for _, info := range DefaultRegistry().List() {
		c, _ := DefaultRegistry().Get(info.ID)
		_, results := c.Example()

		data, err := json.Marshal(results)
		if err != nil {
			t.Errorf("%s: Marshal() error = %v", info.ID, err)
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Errorf("%s: Unmarshal() error = %v", info.ID, err)
		}
	}
}

func compareResults(t *testing.T, path string, want, got any) {
	t.Helper()

	switch w := want.(type) {
	case Results:
		g, ok := got.(Results)
		if !ok {
			t.Errorf("%s: got %T, want nested results", path, got)
			return
		}
		for key, wv := range w {
			compareResults(t, path+"/"+key, wv, g[key])
		}
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			t.Errorf("%s: got %T, want nested map", path, got)
			return
		}
		for key, wv := range w {
			compareResults(t, path+"/"+key, wv, g[key])
		}
	case []float64:
		g, ok := got.([]float64)
		if !ok || len(g) != len(w) {
			t.Errorf("%s: slice mismatch", path)
			return
		}
		for i := range w {
			if !closeEnough(w[i], g[i]) {
				t.Errorf("%s[%d] = %v, want %v", path, i, g[i], w[i])
			}
		}
	case []Results:
		g, ok := got.([]Results)
		if !ok || len(g) != len(w) {
			t.Errorf("%s: slice mismatch", path)
			return
		}
		for i := range w {
			compareResults(t, path, w[i], g[i])
		}
	case float64:
		g, ok := got.(float64)
		if !ok || !closeEnough(w, g) {
			t.Errorf("%s = %v, want %v", path, got, w)
		}
	case int:
		if got != want {
			t.Errorf("%s = %v, want %v", path, got, want)
		}
	default:
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", path, got, want)
		}
	}
}

func closeEnough(want, got float64) bool {
	if want == got {
		return true
	}
	return math.Abs(want-got) <= 1e-9*math.Max(math.Abs(want), math.Abs(got))
}
