package calc

import (
	"math"

	"relcalc/internal/utils"
)

// availabilityCalculator computes steady-state availability from MTBF and
// mean time to repair.
type availabilityCalculator struct {
	info Info
}

// NewAvailabilityCalculator creates the availability calculator.
func NewAvailabilityCalculator() Calculator {
	return &availabilityCalculator{
		info: Info{
			ID:          "availability",
			Name:        "Steady-State Availability Calculator",
			Description: "Calculate steady-state availability and expected downtime from MTBF and MTTR",
			Category:    "Reliability",
			InputFields: []InputField{
				{
					Name:        "mtbf",
					Label:       "MTBF",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Mean Time Between Failures",
					Required:    true,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "mttr",
					Label:       "MTTR",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Mean Time To Repair",
					Required:    true,
					MinValue:    utils.Float64Ptr(0),
				},
			},
		},
	}
}

func (c *availabilityCalculator) Info() Info {
	return c.info
}

func (c *availabilityCalculator) Calculate(inputs Inputs) (Results, error) {
	validated, err := ValidateInputs(c.info.InputFields, inputs)
	if err != nil {
		return nil, err
	}

	mtbf, _ := floatArg(validated, "mtbf")
	mttr, _ := floatArg(validated, "mttr")

	if mtbf <= 0 {
		return nil, invalidInput("mtbf", "MTBF must be > 0")
	}

	availability := mtbf / (mtbf + mttr)
	downtimeHoursPerYear := (1 - availability) * hoursPerYear

	results := Results{
		"availability":            roundTo(availability, 8),
		"availability_percent":    roundTo(availability*100, 6),
		"unavailability":          roundTo(1-availability, 8),
		"downtime_hours_per_year": roundTo(downtimeHoursPerYear, 2),
		"mtbf":                    mtbf,
		"mttr":                    mttr,
	}

	// "Nines" of availability, the usual shorthand for uptime targets.
	if availability < 1 {
		results["nines"] = roundTo(-math.Log10(1-availability), 2)
	}

	return results, nil
}

func (c *availabilityCalculator) Example() (Inputs, Results) {
	inputs := Inputs{
		"mtbf": 10000.0,
		"mttr": 4.0,
	}
	results, _ := c.Calculate(inputs)
	return inputs, results
}
