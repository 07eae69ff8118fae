package calc

import (
	"fmt"
	"math"

	"relcalc/internal/utils"
)

// chiSquareTable holds chi-square critical values for 2(r+1) degrees of
// freedom, indexed by confidence level and allowed failure count. These are
// the standard values used for time/failure-terminated test planning.
var chiSquareTable = map[int]map[int]float64{
	80: {0: 1.609, 1: 3.219, 2: 4.642, 3: 5.989},
	90: {0: 2.303, 1: 4.605, 2: 6.251, 3: 7.779},
	95: {0: 2.996, 1: 5.991, 2: 7.815, 3: 9.488},
	99: {0: 4.605, 1: 9.210, 2: 11.345, 3: 13.277},
}

// sampleSizeCalculator computes the sample size required to demonstrate a
// target reliability at a given confidence level.
type sampleSizeCalculator struct {
	info Info
}

// NewSampleSizeCalculator creates the test sample size calculator.
func NewSampleSizeCalculator() Calculator {
	return &sampleSizeCalculator{
		info: Info{
			ID:          "test_sample_size",
			Name:        "Test Sample Size Calculator",
			Description: "Calculate required sample size for reliability demonstration testing",
			Category:    "Test Planning",
			InputFields: []InputField{
				{
					Name:        "target_reliability",
					Label:       "Target Reliability",
					Type:        FieldFloat,
					Description: "Required reliability level (0-1, e.g. 0.95 for 95%)",
					Required:    true,
					MinValue:    utils.Float64Ptr(0.1),
					MaxValue:    utils.Float64Ptr(0.999),
				},
				{
					Name:        "confidence_level",
					Label:       "Confidence Level",
					Type:        FieldSelect,
					Unit:        "%",
					Description: "Statistical confidence level",
					Required:    true,
					Options:     []string{"80", "90", "95", "99"},
					Default:     "90",
				},
				{
					Name:        "test_type",
					Label:       "Test Type",
					Type:        FieldSelect,
					Description: "Type of reliability test",
					Required:    true,
					Options:     []string{"success_run", "time_terminated", "failure_terminated"},
					Default:     "success_run",
				},
				{
					Name:        "test_duration",
					Label:       "Test Duration",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Duration of each test (for time-terminated tests)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "target_mtbf",
					Label:       "Target MTBF",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Target Mean Time Between Failures",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "max_failures",
					Label:       "Maximum Allowed Failures",
					Type:        FieldInt,
					Description: "Maximum number of failures allowed in test",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
					MaxValue:    utils.Float64Ptr(3),
				},
			},
		},
	}
}

func (c *sampleSizeCalculator) Info() Info {
	return c.info
}

func (c *sampleSizeCalculator) Calculate(inputs Inputs) (Results, error) {
	validated, err := ValidateInputs(c.info.InputFields, inputs)
	if err != nil {
		return nil, err
	}

	reliability, _ := floatArg(validated, "target_reliability")
	confidence := confidenceArg(validated)
	testType, _ := stringArg(validated, "test_type")
	duration, hasDuration := floatArg(validated, "test_duration")
	targetMTBF, hasMTBF := floatArg(validated, "target_mtbf")
	maxFailures, _ := intArg(validated, "max_failures")

	// The declared bounds already exclude 0 and 1, but guard the open
	// interval explicitly since ln(R) is the denominator below.
	if reliability <= 0 || reliability >= 1 {
		return nil, invalidInput("target_reliability", "Target Reliability must be strictly between 0 and 1")
	}

	results := Results{
		"target_reliability":   reliability,
		"confidence_level":     confidence,
		"test_type":            testType,
		"max_failures_allowed": maxFailures,
	}

	switch testType {
	case "success_run":
		// Zero-failure success run: smallest n with 1 - R^n >= C.
		confDecimal := float64(confidence) / 100
		n := int(math.Ceil(math.Log(1-confDecimal) / math.Log(reliability)))

		results["required_sample_size"] = n
		results["test_method"] = "Success Run Test"
		results["description"] = fmt.Sprintf(
			"Test %d units with zero failures to demonstrate %.3f reliability at %d%% confidence",
			n, reliability, confidence)

		if hasDuration && duration > 0 {
			totalHours := float64(n) * duration
			results["total_test_hours"] = roundTo(totalHours, 2)
			results["test_cost_factor"] = roundTo(totalHours/1000, 2)
		}

		results["alternative_scenarios"] = successRunAlternatives(reliability, confidence, n)

	case "time_terminated":
		if !hasDuration || duration <= 0 {
			return nil, invalidInput("test_duration", "Test Duration must be > 0 for time-terminated tests")
		}
		if !hasMTBF || targetMTBF <= 0 {
			return nil, invalidInput("target_mtbf", "Target MTBF is required for time-terminated tests")
		}

		chiSquare := chiSquareTable[confidence][maxFailures]
		totalTime := chiSquare * targetMTBF / 2
		n := int(math.Ceil(totalTime / duration))

		results["required_sample_size"] = n
		results["total_test_time"] = roundTo(totalTime, 2)
		results["test_duration_per_unit"] = duration
		results["test_method"] = "Time-Terminated Test"
		results["chi_square_value"] = chiSquare
		results["description"] = fmt.Sprintf(
			"Test %d units for %g hours each (total %.0f hours) with max %d failures",
			n, duration, totalTime, maxFailures)

	case "failure_terminated":
		if !hasMTBF || targetMTBF <= 0 {
			return nil, invalidInput("target_mtbf", "Target MTBF is required for failure-terminated tests")
		}

		chiSquare := chiSquareTable[confidence][maxFailures]
		totalTime := chiSquare * targetMTBF / 2

		// Conservative sizing: plan for three units per expected failure.
		estimated := 10
		if maxFailures > 0 {
			estimated = maxFailures * 3
		}

		results["estimated_sample_size"] = estimated
		results["expected_total_test_time"] = roundTo(totalTime, 2)
		results["test_method"] = "Failure-Terminated Test"
		results["chi_square_value"] = chiSquare
		results["description"] = fmt.Sprintf(
			"Test until %d failures occur, expecting ~%.0f total test hours",
			maxFailures, totalTime)
	}

	if recs := planningRecommendations(reliability, confidence, testType); len(recs) > 0 {
		results["recommendations"] = recs
	}

	return results, nil
}

func (c *sampleSizeCalculator) Example() (Inputs, Results) {
	inputs := Inputs{
		"target_reliability": 0.95,
		"confidence_level":   "90",
		"test_type":          "success_run",
	}
	results, _ := c.Calculate(inputs)
	return inputs, results
}

// successRunAlternatives shows sample sizes at lower confidence levels.
func successRunAlternatives(reliability float64, confidence, sampleSize int) []Results {
	var alternatives []Results
	for _, altConf := range []int{80, 90} {
		if altConf == confidence {
			continue
		}
		altDecimal := float64(altConf) / 100
		altSize := int(math.Ceil(math.Log(1-altDecimal) / math.Log(reliability)))
		alternatives = append(alternatives, Results{
			"confidence_level": altConf,
			"sample_size":      altSize,
			"reduction":        sampleSize - altSize,
		})
	}
	return alternatives
}

func planningRecommendations(reliability float64, confidence int, testType string) []string {
	var recs []string
	if reliability > 0.99 {
		recs = append(recs, "High reliability target requires large sample sizes")
	}
	if confidence >= 95 {
		recs = append(recs, "High confidence level increases required sample size")
	}
	if testType == "success_run" && reliability > 0.95 {
		recs = append(recs, "Consider time-terminated testing for cost efficiency")
	}
	return recs
}
