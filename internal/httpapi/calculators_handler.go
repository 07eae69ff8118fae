package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"relcalc/internal/calc"
	"relcalc/internal/logging"
	"relcalc/internal/middleware"
	"relcalc/internal/models"
	"relcalc/internal/quota"
	"relcalc/internal/utils"
)

// handleListCalculators returns all registered calculators in registration
// order.
func (d *Dependencies) handleListCalculators(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"calculators": d.Registry.List(),
	})
}

// handleCalculatorInfo returns metadata for a single calculator.
func (d *Dependencies) handleCalculatorInfo(w http.ResponseWriter, r *http.Request) {
	calculator, err := d.Registry.Get(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "unknown calculator: "+r.PathValue("id"))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, calculator.Info())
}

// calculateResponse is the body returned for a successful calculation.
type calculateResponse struct {
	Calculator string       `json:"calculator"`
	Results    calc.Results `json:"results"`
}

// quotaExceededResponse is the 429 body. It tells the client how to get
// more quota: authenticate, or upgrade to premium.
type quotaExceededResponse struct {
	Error         string `json:"error"`
	RequiresAuth  bool   `json:"requires_auth"`
	UpgradeNeeded bool   `json:"upgrade_needed"`
	Used          int64  `json:"used"`
	Limit         int64  `json:"limit"`
	ResetTime     string `json:"reset_time"`
}

// handleCalculate runs a calculation.
//
// Flow:
//  1. Resolve calculator by id
//  2. Decode input payload
//  3. Consume one quota unit for the caller
//  4. Validate and compute
//  5. Record the request in the audit trail and usage pipeline
//  6. Return the result
func (d *Dependencies) handleCalculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := uuid.NewString()
	id := r.PathValue("id")

	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		// Identity middleware always sets a caller; treat absence as anonymous.
		caller = quota.Caller{Identity: r.RemoteAddr, Tier: quota.TierFree}
	}

	// 1. Resolve calculator.
	calculator, err := d.Registry.Get(id)
	if err != nil {
		d.recordUsage(r.Context(), reqID, caller, id, nil, false, http.StatusNotFound, "unknown calculator", start)
		utils.RespondWithError(w, http.StatusNotFound, "unknown calculator: "+id)
		return
	}

	// 2. Decode inputs.
	var inputs calc.Inputs
	if err := utils.DecodeJSONBody(w, r, &inputs); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 3. Quota check. Denials are still recorded in the audit trail.
	decision := d.Gate.CheckAndRecord(r.Context(), caller)
	if !decision.Allowed {
		d.recordUsage(r.Context(), reqID, caller, id, inputs, false, http.StatusTooManyRequests, decision.Reason, start)
		utils.RespondWithJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
			Error:         decision.Reason,
			RequiresAuth:  decision.RequiresAuth,
			UpgradeNeeded: decision.UpgradeNeeded,
			Used:          decision.Used,
			Limit:         decision.Limit,
			ResetTime:     decision.ResetTime.Format(time.RFC3339),
		})
		return
	}

	// 4. Validate and compute.
	results, err := calculator.Calculate(inputs)
	if err != nil {
		d.recordUsage(r.Context(), reqID, caller, id, inputs, true, http.StatusBadRequest, err.Error(), start)
		respondCalculationError(w, err)
		return
	}

	// 5. Audit.
	d.recordUsage(r.Context(), reqID, caller, id, inputs, true, http.StatusOK, "", start)

	// 6. Respond.
	utils.RespondWithJSON(w, http.StatusOK, calculateResponse{
		Calculator: id,
		Results:    results,
	})
}

// handleCalculatorExample returns the canonical worked example. Examples
// are quota-exempt so the UI can always pre-fill forms.
func (d *Dependencies) handleCalculatorExample(w http.ResponseWriter, r *http.Request) {
	calculator, err := d.Registry.Get(r.PathValue("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "unknown calculator: "+r.PathValue("id"))
		return
	}

	inputs, results := calculator.Example()
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"calculator": r.PathValue("id"),
		"inputs":     inputs,
		"results":    results,
	})
}

// handleUsage reports the caller's consumption today without consuming
// quota.
func (d *Dependencies) handleUsage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		caller = quota.Caller{Identity: r.RemoteAddr, Tier: quota.TierFree}
	}

	usage, err := d.Gate.Remaining(r.Context(), caller)
	if err != nil {
		d.Logger.Error("Failed to read usage", "identity", caller.Identity, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"used":       usage.Used,
		"limit":      usage.Limit,
		"remaining":  usage.Remaining,
		"is_premium": caller.Tier == quota.TierPremium,
		"reset_time": usage.ResetTime.Format(time.RFC3339),
	})
}

// respondCalculationError maps calculation failures onto HTTP statuses.
// All validation and compute failures stem from caller input, so they are
// client errors carrying the offending field.
func respondCalculationError(w http.ResponseWriter, err error) {
	var invalid *calc.InvalidInputError
	if errors.As(err, &invalid) {
		utils.RespondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error":  invalid.Error(),
			"field":  invalid.Field,
			"reason": invalid.Reason,
		})
		return
	}
	utils.RespondWithError(w, http.StatusBadRequest, err.Error())
}

// recordUsage ships one request record to the audit trail and, when a
// database is attached, to the usage log pipeline. Both are best-effort:
// failures are logged, never surfaced to the caller.
func (d *Dependencies) recordUsage(ctx context.Context, reqID string, caller quota.Caller, calculatorID string, inputs calc.Inputs, allowed bool, statusCode int, errMsg string, start time.Time) {
	elapsed := time.Since(start)

	_ = d.Audit.Enqueue(&logging.AuditRecord{
		Timestamp:      time.Now().UTC(),
		RequestID:      reqID,
		CallerIdentity: caller.Identity,
		Tier:           string(caller.Tier),
		CalculatorID:   calculatorID,
		Inputs:         inputs,
		Allowed:        allowed,
		StatusCode:     statusCode,
		Error:          errMsg,
		DurationMs:     elapsed.Milliseconds(),
	})

	if d.UsageQueue == nil {
		return
	}

	record := &models.UsageLog{
		ID:             uuid.New(),
		RequestID:      uuid.MustParse(reqID),
		CallerIdentity: caller.Identity,
		Tier:           string(caller.Tier),
		CalculatorID:   calculatorID,
		Allowed:        allowed,
		StatusCode:     statusCode,
		ErrorMessage:   errMsg,
		ResponseTimeMS: int(elapsed.Milliseconds()),
		CreatedAt:      time.Now().UTC(),
	}
	if err := d.UsageQueue.Enqueue(ctx, record); err != nil {
		d.Logger.Warn("Failed to enqueue usage log", "request_id", reqID, "error", err)
	}
}
