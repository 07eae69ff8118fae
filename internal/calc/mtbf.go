package calc

import (
	"math"

	"relcalc/internal/utils"
)

const hoursPerYear = 365.25 * 24

// mtbfCalculator computes Mean Time Between Failures, mission reliability and
// chi-square confidence intervals for a constant-failure-rate device.
type mtbfCalculator struct {
	info Info
}

// NewMTBFCalculator creates the MTBF calculator.
func NewMTBFCalculator() Calculator {
	return &mtbfCalculator{
		info: Info{
			ID:          "mtbf",
			Name:        "MTBF Calculator",
			Description: "Calculate Mean Time Between Failures for semiconductor devices",
			Category:    "Reliability",
			InputFields: []InputField{
				{
					Name:        "failure_rate",
					Label:       "Failure Rate (λ)",
					Type:        FieldFloat,
					Unit:        "failures/hour",
					Description: "Device failure rate in failures per hour (optional when test data is given)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "operating_hours",
					Label:       "Operating Hours",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Mission time for the reliability calculation (optional)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "confidence_level",
					Label:       "Confidence Level",
					Type:        FieldSelect,
					Unit:        "%",
					Description: "Statistical confidence level",
					Required:    true,
					Options:     []string{"90", "95", "99"},
					Default:     "95",
				},
				{
					Name:        "num_failures",
					Label:       "Number of Failures",
					Type:        FieldInt,
					Description: "Number of observed failures (for exact confidence intervals)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
					MaxValue:    utils.Float64Ptr(1000),
				},
				{
					Name:        "test_time",
					Label:       "Total Test Time",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Total accumulated test time (for exact confidence intervals)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
			},
		},
	}
}

func (c *mtbfCalculator) Info() Info {
	return c.info
}

func (c *mtbfCalculator) Calculate(inputs Inputs) (Results, error) {
	validated, err := ValidateInputs(c.info.InputFields, inputs)
	if err != nil {
		return nil, err
	}

	failureRate, hasRate := floatArg(validated, "failure_rate")
	operatingHours, hasHours := floatArg(validated, "operating_hours")
	numFailures, hasFailures := intArg(validated, "num_failures")
	testTime, hasTestTime := floatArg(validated, "test_time")
	confidence := confidenceArg(validated)

	hasTestData := hasFailures && hasTestTime
	if hasTestData && testTime <= 0 {
		return nil, invalidInput("test_time", "Total Test Time must be > 0")
	}

	// Derive the failure rate from observed test data when it is not given
	// directly: λ = r / T.
	if !hasRate {
		if !hasTestData {
			return nil, invalidInput("failure_rate", "Failure Rate is required unless test data is provided")
		}
		failureRate = float64(numFailures) / testTime
	} else if failureRate <= 0 && !hasTestData {
		return nil, invalidInput("failure_rate", "Failure Rate must be > 0")
	}

	results := Results{
		"failure_rate":     failureRate,
		"confidence_level": confidence,
	}

	if failureRate > 0 {
		mtbf := 1 / failureRate
		results["mtbf_hours"] = roundTo(mtbf, 2)
		results["mtbf_years"] = roundTo(mtbf/hoursPerYear, 4)
	} else {
		// Zero observed failures: the point estimate is unbounded.
		results["mtbf_hours"] = "∞"
		results["mtbf_years"] = "∞"
	}

	if hasHours {
		if operatingHours <= 0 {
			return nil, invalidInput("operating_hours", "Operating Hours must be > 0")
		}
		reliability := math.Exp(-failureRate * operatingHours)
		results["reliability"] = roundTo(reliability, 6)
		results["unreliability"] = roundTo(1-reliability, 6)
		results["reliability_percent"] = roundTo(reliability*100, 4)
		results["operating_hours"] = operatingHours
	}

	if hasTestData {
		results["precise_analysis"] = exactConfidenceInterval(numFailures, testTime, confidence)
	} else if failureRate > 0 {
		results["approximate_analysis"] = approximateConfidenceInterval(failureRate, confidence)
	}

	return results, nil
}

func (c *mtbfCalculator) Example() (Inputs, Results) {
	inputs := Inputs{
		"failure_rate":     0.0001,
		"operating_hours":  8760.0,
		"confidence_level": "95",
	}
	results, _ := c.Calculate(inputs)
	return inputs, results
}

// exactConfidenceInterval computes chi-square confidence limits from observed
// test data. For r failures over time T, 2Tλ follows a chi-square distribution
// with 2r degrees of freedom.
func exactConfidenceInterval(numFailures int, testTime float64, confidence int) Results {
	alpha := float64(100-confidence) / 100

	var mtbfLower float64
	var mtbfUpper, observedMTBF any
	var rateLower, rateUpper float64

	if numFailures == 0 {
		// Zero failures: only the lower MTBF bound is finite.
		chi2Upper := chiSquareQuantile(1-alpha/2, 2)
		mtbfLower = 2 * testTime / chi2Upper
		mtbfUpper = "∞"
		rateLower = 0
		rateUpper = chi2Upper / (2 * testTime)
		observedMTBF = "∞"
	} else {
		df := 2 * numFailures
		chi2Lower := chiSquareQuantile(alpha/2, df)
		chi2Upper := chiSquareQuantile(1-alpha/2, df)
		mtbfLower = 2 * testTime / chi2Upper
		mtbfUpper = roundTo(2*testTime/chi2Lower, 2)
		rateLower = chi2Lower / (2 * testTime)
		rateUpper = chi2Upper / (2 * testTime)
		observedMTBF = roundTo(testTime/float64(numFailures), 2)
	}

	observedRate := 0.0
	if numFailures > 0 {
		observedRate = float64(numFailures) / testTime
	}

	return Results{
		"test_data": Results{
			"failures":              numFailures,
			"test_time":             testTime,
			"observed_mtbf":         observedMTBF,
			"observed_failure_rate": roundTo(observedRate, 8),
		},
		"mtbf_confidence_interval": Results{
			"lower":  roundTo(mtbfLower, 2),
			"upper":  mtbfUpper,
			"method": "Chi-square exact",
		},
		"failure_rate_confidence_interval": Results{
			"lower":  roundTo(rateLower, 8),
			"upper":  roundTo(rateUpper, 8),
			"method": "Chi-square exact",
		},
	}
}

// approximateConfidenceInterval estimates confidence limits when only a
// failure rate is known, assuming it came from roughly ten observed failures.
func approximateConfidenceInterval(failureRate float64, confidence int) Results {
	const assumedFailures = 10

	mtbf := 1 / failureRate
	alpha := float64(100-confidence) / 100
	df := 2 * assumedFailures

	chi2Lower := chiSquareQuantile(alpha/2, df)
	chi2Upper := chiSquareQuantile(1-alpha/2, df)

	mtbfLower := mtbf * float64(df) / chi2Upper
	mtbfUpper := mtbf * float64(df) / chi2Lower

	return Results{
		"note": "Approximate confidence intervals (assuming ~10 failures observed)",
		"mtbf_confidence_interval": Results{
			"lower":  roundTo(mtbfLower, 2),
			"upper":  roundTo(mtbfUpper, 2),
			"method": "Chi-square approximation",
		},
		"failure_rate_confidence_interval": Results{
			"lower":  roundTo(1/mtbfUpper, 8),
			"upper":  roundTo(1/mtbfLower, 8),
			"method": "Chi-square approximation",
		},
	}
}

// confidenceArg reads the validated confidence_level selection as an integer.
func confidenceArg(validated Inputs) int {
	s, _ := stringArg(validated, "confidence_level")
	switch s {
	case "80":
		return 80
	case "90":
		return 90
	case "99":
		return 99
	default:
		return 95
	}
}
