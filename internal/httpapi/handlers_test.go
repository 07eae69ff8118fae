package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcalc/internal/auth"
	"relcalc/internal/calc"
	"relcalc/internal/config"
	"relcalc/internal/logging"
	"relcalc/internal/quota"
	"relcalc/internal/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:      []byte("test-secret"),
		Standalone:     true,
		FreeDailyLimit: 10,
	}

	deps := &Dependencies{
		Registry: calc.DefaultRegistry(),
		Users:    auth.NewInMemoryUserStore(),
		Gate:     quota.NewGate(quota.NewMemoryCounterStore(), cfg.FreeDailyLimit, utils.NewLogger("quota-test")),
		Audit:    logging.NewNoopSink(),
		Logger:   utils.NewLogger("httpapi-test"),
		cfg:      cfg,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerUser(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse battery staple",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestListCalculators(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/calculators", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	calculators, ok := body["calculators"].([]any)
	require.True(t, ok)
	assert.Len(t, calculators, 4)

	first := calculators[0].(map[string]any)
	assert.Equal(t, "mtbf", first["id"])
}

func TestCalculatorInfo(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/calculators/mtbf/info", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mtbf", body["id"])
	assert.NotEmpty(t, body["input_fields"])
}

func TestCalculatorInfoUnknown(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/calculators/nope/info", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown calculator")
}

func TestCalculateMTBF(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", map[string]any{
		"failure_rate":     0.0001,
		"operating_hours":  8760.0,
		"confidence_level": "95",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "mtbf", body["calculator"])
	results, ok := body["results"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 10000.0, results["mtbf_hours"], 0.01)
	assert.InDelta(t, 0.416446, results["reliability"], 0.0001)
}

func TestCalculateInvalidInput(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", map[string]any{
		"failure_rate":     -1.0,
		"confidence_level": "95",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failure_rate", body["field"])
	assert.NotEmpty(t, body["reason"])
}

func TestCalculateUnknownCalculator(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/nope", "", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown calculator")
}

func TestCalculateQuotaExhaustion(t *testing.T) {
	server := newTestServer(t)
	inputs := map[string]any{
		"failure_rate":     0.0001,
		"confidence_level": "95",
	}

	for i := 0; i < 10; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", inputs)
		require.Equal(t, http.StatusOK, resp.StatusCode, "call %d should be within quota", i+1)
	}

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", inputs)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, true, body["requires_auth"])
	assert.Equal(t, false, body["upgrade_needed"])
	assert.Equal(t, float64(10), body["limit"])
	assert.NotEmpty(t, body["reset_time"])
}

func TestExampleIsQuotaExempt(t *testing.T) {
	server := newTestServer(t)

	for i := 0; i < 15; i++ {
		resp, body := doJSON(t, http.MethodGet, server.URL+"/api/calculators/calculate/mtbf/example", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "mtbf", body["calculator"])
		assert.NotEmpty(t, body["inputs"])
		assert.NotEmpty(t, body["results"])
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/usage", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["used"])
}

func TestUsageEndpoint(t *testing.T) {
	server := newTestServer(t)
	inputs := map[string]any{
		"failure_rate":     0.0001,
		"confidence_level": "95",
	}

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", inputs)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/usage", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["used"])
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, float64(7), body["remaining"])
	assert.Equal(t, false, body["is_premium"])
}

func TestRegisterLoginMe(t *testing.T) {
	server := newTestServer(t)

	token := registerUser(t, server, "alice@example.com")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, false, body["is_premium"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	server := newTestServer(t)

	registerUser(t, server, "bob@example.com")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    "bob@example.com",
		"password": "correct horse battery staple",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "already registered")
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "correct horse battery staple",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    "carol@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	server := newTestServer(t)

	registerUser(t, server, "dave@example.com")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "dave@example.com",
		"password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid email or password")
}

func TestMeRequiresAuth(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpgradeUnlocksQuota(t *testing.T) {
	server := newTestServer(t)
	inputs := map[string]any{
		"failure_rate":     0.0001,
		"confidence_level": "95",
	}

	token := registerUser(t, server, "eve@example.com")

	// Exhaust the free quota on the account.
	for i := 0; i < 10; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", token, inputs)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, denied := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", token, inputs)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, true, denied["upgrade_needed"])
	assert.Equal(t, false, denied["requires_auth"])

	// Upgrade returns a fresh token carrying the premium tier.
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/upgrade", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	premiumToken, ok := body["token"].(string)
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", premiumToken, inputs)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/usage", premiumToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_premium"])
	assert.Equal(t, float64(-1), body["limit"])
	assert.Equal(t, float64(-1), body["remaining"])
}

func TestAnonymousCallersIsolatedFromUsers(t *testing.T) {
	server := newTestServer(t)
	inputs := map[string]any{
		"failure_rate":     0.0001,
		"confidence_level": "95",
	}

	// Burn the anonymous quota.
	for i := 0; i < 10; i++ {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", inputs)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", "", inputs)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// A registered user on the same host gets a fresh allowance.
	token := registerUser(t, server, "frank@example.com")
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/calculators/calculate/mtbf", token, inputs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAllCalculatorExamplesSucceed(t *testing.T) {
	server := newTestServer(t)

	for _, id := range []string{"mtbf", "test_sample_size", "duane_model", "availability"} {
		t.Run(id, func(t *testing.T) {
			url := fmt.Sprintf("%s/api/calculators/calculate/%s/example", server.URL, id)
			resp, body := doJSON(t, http.MethodGet, url, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, id, body["calculator"])
			assert.NotEmpty(t, body["results"])
		})
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
