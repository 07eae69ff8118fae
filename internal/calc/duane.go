package calc

import (
	"math"
	"strconv"
	"strings"

	"relcalc/internal/utils"
)

// duaneCalculator fits the Duane reliability growth model
// MTBF_c(t) = α·t^β by least-squares regression on the log-log scale.
type duaneCalculator struct {
	info Info
}

// NewDuaneCalculator creates the Duane model calculator.
func NewDuaneCalculator() Calculator {
	return &duaneCalculator{
		info: Info{
			ID:          "duane_model",
			Name:        "Duane Model Reliability Growth Calculator",
			Description: "Calculate reliability growth parameters and predict MTBF using the Duane model",
			Category:    "Reliability Growth",
			InputFields: []InputField{
				{
					Name:        "failure_times",
					Label:       "Failure Times",
					Type:        FieldText,
					Unit:        "hours",
					Description: "Comma-separated cumulative failure times in ascending order (e.g. 100, 250, 480, 750, 1200)",
					Required:    true,
				},
				{
					Name:        "target_time",
					Label:       "Target Time",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Time at which to predict MTBF (optional)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
				{
					Name:        "confidence_level",
					Label:       "Confidence Level",
					Type:        FieldSelect,
					Unit:        "%",
					Description: "Statistical confidence level for predictions",
					Required:    true,
					Options:     []string{"90", "95", "99"},
					Default:     "95",
				},
				{
					Name:        "total_test_time",
					Label:       "Total Test Time",
					Type:        FieldFloat,
					Unit:        "hours",
					Description: "Total accumulated test time (defaults to the last failure time)",
					Required:    false,
					MinValue:    utils.Float64Ptr(0),
				},
			},
		},
	}
}

func (c *duaneCalculator) Info() Info {
	return c.info
}

func (c *duaneCalculator) Calculate(inputs Inputs) (Results, error) {
	validated, err := ValidateInputs(c.info.InputFields, inputs)
	if err != nil {
		return nil, err
	}

	timesText, _ := stringArg(validated, "failure_times")
	targetTime, hasTarget := floatArg(validated, "target_time")
	confidence := confidenceArg(validated)
	totalTestTime, hasTotal := floatArg(validated, "total_test_time")

	failureTimes, err := parseFailureTimes(timesText)
	if err != nil {
		return nil, err
	}

	fit := fitDuaneModel(failureTimes)

	testDuration := failureTimes[len(failureTimes)-1]
	if hasTotal && totalTestTime > 0 {
		testDuration = totalTestTime
	}

	results := Results{
		"input_data": Results{
			"failure_times":      failureTimes,
			"number_of_failures": len(failureTimes),
			"test_duration":      testDuration,
			"confidence_level":   confidence,
		},
		"duane_model_parameters": Results{
			"alpha":    roundTo(fit.alpha, 6),
			"beta":     roundTo(fit.beta, 6),
			"ln_alpha": roundTo(fit.lnAlpha, 6),
		},
		"cumulative_mtbf_data": Results{
			"failure_times":   failureTimes,
			"failure_numbers": fit.failureNumbers,
			"cumulative_mtbf": fit.cumulativeMTBF,
		},
		"model_fit_statistics": Results{
			"r_squared":            roundTo(fit.rSquared, 6),
			"standard_error_beta":  roundTo(fit.seBeta, 6),
			"standard_error_alpha": roundTo(fit.seAlpha, 6),
			"degrees_of_freedom":   len(failureTimes) - 2,
		},
	}

	if hasTarget && targetTime > 0 {
		results["target_prediction"] = predictMTBF(targetTime, fit, confidence)
	}
	results["final_prediction"] = predictMTBF(testDuration, fit, confidence)

	results["reliability_growth"] = Results{
		"growth_rate_percent": roundTo((1-fit.beta)*100, 2),
		"interpretation":      interpretGrowth(fit.beta),
		"time_to_double_mtbf": timeToDoubleMTBF(fit.beta, testDuration),
	}

	return results, nil
}

func (c *duaneCalculator) Example() (Inputs, Results) {
	inputs := Inputs{
		"failure_times":    "100, 250, 480, 750, 1200",
		"confidence_level": "95",
		"target_time":      2000.0,
	}
	results, _ := c.Calculate(inputs)
	return inputs, results
}

// parseFailureTimes parses the comma-separated list and enforces a strictly
// ascending sequence of at least two points.
func parseFailureTimes(text string) ([]float64, error) {
	var times []float64
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, invalidInput("failure_times", "Failure Times must be numeric values separated by commas")
		}
		if t <= 0 {
			return nil, invalidInput("failure_times", "Failure Times must be positive")
		}
		times = append(times, t)
	}

	if len(times) < 2 {
		return nil, invalidInput("failure_times", "insufficient data for regression: at least 2 failure times are required")
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, invalidInput("failure_times", "Failure Times must be in strictly ascending order")
		}
	}
	return times, nil
}

// duaneFit holds the regression output.
type duaneFit struct {
	alpha, beta, lnAlpha      float64
	rSquared, seBeta, seAlpha float64
	failureNumbers            []int
	cumulativeMTBF            []float64
}

// fitDuaneModel performs the least-squares fit of
// ln(MTBF_c) = ln(α) + β·ln(t) over the cumulative MTBF points
// MTBF_c(t_i) = t_i / i.
func fitDuaneModel(failureTimes []float64) duaneFit {
	n := len(failureTimes)

	failureNumbers := make([]int, n)
	cumulativeMTBF := make([]float64, n)
	lnTimes := make([]float64, n)
	lnMTBF := make([]float64, n)

	for i, t := range failureTimes {
		failureNumbers[i] = i + 1
		cumulativeMTBF[i] = t / float64(i+1)
		lnTimes[i] = math.Log(t)
		lnMTBF[i] = math.Log(cumulativeMTBF[i])
	}

	var sumX, sumY, sumXX, sumXY float64
	for i := range lnTimes {
		sumX += lnTimes[i]
		sumY += lnMTBF[i]
		sumXX += lnTimes[i] * lnTimes[i]
		sumXY += lnTimes[i] * lnMTBF[i]
	}

	fn := float64(n)
	beta := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	lnAlpha := (sumY - beta*sumX) / fn

	// Goodness of fit on the log scale.
	yMean := sumY / fn
	var ssTot, ssRes float64
	for i := range lnTimes {
		predicted := lnAlpha + beta*lnTimes[i]
		ssTot += (lnMTBF[i] - yMean) * (lnMTBF[i] - yMean)
		ssRes += (lnMTBF[i] - predicted) * (lnMTBF[i] - predicted)
	}
	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	var mse float64
	if n > 2 {
		mse = ssRes / float64(n-2)
	}
	var sxx float64
	for _, x := range lnTimes {
		sxx += (x - sumX/fn) * (x - sumX/fn)
	}
	var seBeta, seAlpha float64
	if sxx > 0 {
		seBeta = math.Sqrt(mse / sxx)
		seAlpha = math.Sqrt(mse * (1/fn + (sumX/fn)*(sumX/fn)/sxx))
	}

	return duaneFit{
		alpha:          math.Exp(lnAlpha),
		beta:           beta,
		lnAlpha:        lnAlpha,
		rSquared:       rSquared,
		seBeta:         seBeta,
		seAlpha:        seAlpha,
		failureNumbers: failureNumbers,
		cumulativeMTBF: cumulativeMTBF,
	}
}

// predictMTBF evaluates the fitted model at a given time. The instantaneous
// MTBF of the Duane model is MTBF_c / (1 - β).
func predictMTBF(atTime float64, fit duaneFit, confidence int) Results {
	cumulative := fit.alpha * math.Pow(atTime, fit.beta)

	var instantaneous any
	if fit.beta < 1 {
		instantaneous = roundTo(cumulative/(1-fit.beta), 2)
	} else {
		instantaneous = "∞"
	}

	// Approximate log-normal bounds around the cumulative prediction.
	z := normalQuantile(1 - float64(100-confidence)/200)
	const seLnMTBF = 0.1
	lnCumulative := math.Log(cumulative)

	return Results{
		"time":               atTime,
		"mtbf_cumulative":    roundTo(cumulative, 2),
		"mtbf_instantaneous": instantaneous,
		"confidence_interval": Results{
			"lower": roundTo(math.Exp(lnCumulative-z*seLnMTBF), 2),
			"upper": roundTo(math.Exp(lnCumulative+z*seLnMTBF), 2),
			"level": confidence,
		},
	}
}

func interpretGrowth(beta float64) string {
	switch {
	case beta > 1:
		return "Reliability is deteriorating (β > 1)"
	case beta == 1:
		return "No reliability growth (β = 1, constant failure rate)"
	case beta > 0.8:
		return "Slow reliability growth (β > 0.8)"
	case beta > 0.5:
		return "Moderate reliability growth (0.5 < β ≤ 0.8)"
	case beta > 0.2:
		return "Good reliability growth (0.2 < β ≤ 0.5)"
	default:
		return "Excellent reliability growth (β ≤ 0.2)"
	}
}

// timeToDoubleMTBF returns the additional test time needed to double the
// cumulative MTBF: t2 = t1 · 2^(1/β).
func timeToDoubleMTBF(beta, currentTime float64) any {
	if beta <= 0 || beta >= 1 {
		return "∞"
	}
	doubling := math.Pow(2, 1/beta)
	return roundTo(currentTime*(doubling-1), 2)
}
