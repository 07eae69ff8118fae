package calc

import (
	"errors"
	"testing"
)

func TestDuane_CumulativeMTBF(t *testing.T) {
	c := NewDuaneCalculator()

	results, err := c.Calculate(Inputs{
		"failure_times":    "100, 250, 480, 750, 1200",
		"confidence_level": "95",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	data, ok := results["cumulative_mtbf_data"].(Results)
	if !ok {
		t.Fatal("cumulative_mtbf_data missing")
	}

	// MTBF_c(t_i) = t_i / i must be reproduced exactly before fitting.
	want := []float64{100, 125, 160, 187.5, 240}
	got := data["cumulative_mtbf"].([]float64)
	if len(got) != len(want) {
		t.Fatalf("cumulative_mtbf length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cumulative_mtbf[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDuane_FitParameters(t *testing.T) {
	c := NewDuaneCalculator()

	results, err := c.Calculate(Inputs{
		"failure_times":    "100, 250, 480, 750, 1200",
		"confidence_level": "95",
		"target_time":      2000.0,
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	params := results["duane_model_parameters"].(Results)
	beta := params["beta"].(float64)
	alpha := params["alpha"].(float64)

	// Growing cumulative MTBF means 0 < β < 1.
	if beta <= 0 || beta >= 1 {
		t.Errorf("beta = %v, want in (0, 1)", beta)
	}
	if alpha <= 0 {
		t.Errorf("alpha = %v, want > 0", alpha)
	}

	stats := results["model_fit_statistics"].(Results)
	if r2 := stats["r_squared"].(float64); r2 < 0.9 {
		t.Errorf("r_squared = %v, want >= 0.9 for this near-power-law data", r2)
	}

	target := results["target_prediction"].(Results)
	cumAtTarget := target["mtbf_cumulative"].(float64)
	final := results["final_prediction"].(Results)
	cumAtFinal := final["mtbf_cumulative"].(float64)
	if cumAtTarget <= cumAtFinal {
		t.Errorf("cumulative MTBF at t=2000 (%v) should exceed value at t=1200 (%v)",
			cumAtTarget, cumAtFinal)
	}

	inst := target["mtbf_instantaneous"].(float64)
	if inst <= cumAtTarget {
		t.Errorf("instantaneous MTBF (%v) should exceed cumulative (%v) while growing", inst, cumAtTarget)
	}
}

func TestDuane_InsufficientData(t *testing.T) {
	c := NewDuaneCalculator()

	_, err := c.Calculate(Inputs{
		"failure_times":    "100",
		"confidence_level": "95",
	})
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("Calculate() error = %v, want InvalidInputError", err)
	}
	if iie.Field != "failure_times" {
		t.Errorf("error field = %q, want failure_times", iie.Field)
	}
}

func TestDuane_NonAscendingTimes(t *testing.T) {
	c := NewDuaneCalculator()

	for _, times := range []string{"100, 100, 200", "300, 200, 100"} {
		_, err := c.Calculate(Inputs{
			"failure_times":    times,
			"confidence_level": "95",
		})
		if !IsInvalidInput(err) {
			t.Errorf("Calculate(%q) error = %v, want InvalidInputError", times, err)
		}
	}
}

func TestDuane_MalformedTimes(t *testing.T) {
	c := NewDuaneCalculator()

	_, err := c.Calculate(Inputs{
		"failure_times":    "100, abc, 300",
		"confidence_level": "95",
	})
	if !IsInvalidInput(err) {
		t.Errorf("Calculate() error = %v, want InvalidInputError", err)
	}
}
