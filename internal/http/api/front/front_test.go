package front

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/analysis"
	"github.com/duskwallet/duskwallet-api/internal/config"
	"github.com/duskwallet/duskwallet-api/internal/db"
	"github.com/duskwallet/duskwallet-api/internal/llm"
	"github.com/duskwallet/duskwallet-api/internal/models"
	"github.com/duskwallet/duskwallet-api/internal/quota"
	"github.com/duskwallet/duskwallet-api/internal/ratelimit"
)

const validAnalysis = `{
  "summary": "Spending is concentrated on housing.",
  "positivePoint": "Income covers expenses.",
  "attentionPoint": "Food delivery grew.",
  "patternsDetected": ["housing", "delivery"],
  "advice": ["cook at home"],
  "emergencyPlan": ["keep a reserve"]
}`

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T, rl config.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "front.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	gate := quota.NewGate(conn)
	generator := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return validAnalysis, nil
	})
	deps := Deps{
		DB:          conn,
		JWT:         config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		Analysis:    analysis.NewService(conn, gate, generator, 5*time.Second),
		Gate:        gate,
		Debug:       true,
		Environment: "test",
	}
	if rl.General > 0 || rl.Auth > 0 {
		deps.Limiter = ratelimit.NewManager(ratelimit.StaticSettings(rl), time.Now, nil)
	}

	engine := gin.New()
	RegisterFrontRoutes(engine, deps)
	return &testServer{engine: engine, db: conn}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup registers and logs in a user, returning the token and user ID.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Ana",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeBody(t, rec)["user"].(map[string]any)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token, user["id"].(string)
}

func TestHealthAndHeaders(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = srv.do(t, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	preflight := httptest.NewRecorder()
	srv.engine.ServeHTTP(preflight, req)
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "route not found", body["error"])
	assert.Equal(t, "/api/nope", body["path"])
	assert.Equal(t, http.MethodGet, body["method"])
}

func TestRegisterValidationAndDuplicate(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "", "email": "bad", "password": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeBody(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	rec = srv.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	srv.signup(t, "dup@example.com")
	rec = srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Other",
		"email":    "  DUP@example.com ",
		"password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "email already in use", decodeBody(t, rec)["error"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	srv.signup(t, "login@example.com")

	rec := srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "login@example.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeBody(t, rec)["error"])

	rec = srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@example.com", "password": "secret123"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	rec := srv.do(t, http.MethodGet, "/api/transactions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", decodeBody(t, rec)["error"])

	rec = srv.do(t, http.MethodGet, "/api/transactions", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeBody(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Token abc")
	out := httptest.NewRecorder()
	srv.engine.ServeHTTP(out, req)
	require.Equal(t, http.StatusUnauthorized, out.Code)
	assert.Equal(t, "invalid authorization format", decodeBody(t, out)["error"])
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	token, _ := srv.signup(t, "tx@example.com")
	otherToken, _ := srv.signup(t, "other@example.com")

	rec := srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{
		"description":   "Salario",
		"amount":        5000,
		"type":          "INCOME",
		"category":      "SALARIO",
		"paymentMethod": "PIX",
		"date":          "2026-10-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{
		"description":   "Aluguel apartamento",
		"amount":        "1250.50",
		"type":          "expense",
		"category":      "MORADIA",
		"paymentMethod": "PIX",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	id := created["id"].(string)
	assert.Equal(t, "EXPENSE", created["type"])
	assert.InDelta(t, 1250.50, created["amount"], 0.001)

	rec = srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{
		"description":   "ab",
		"amount":        -3,
		"type":          "GIFT",
		"category":      "NOPE",
		"paymentMethod": "PIX",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeBody(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "description")
	assert.Contains(t, errs, "type")
	assert.Contains(t, errs, "category")

	rec = srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{"description": "Mercado"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs = decodeBody(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "amount")
	assert.Contains(t, errs, "paymentMethod")

	rec = srv.do(t, http.MethodGet, "/api/transactions?type=EXPENSE", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])

	rec = srv.do(t, http.MethodGet, "/api/transactions?search=ALUGUEL", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = srv.do(t, http.MethodGet, "/api/transactions/"+id, otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/transactions/"+id, token, gin.H{"amount": 1300})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 1300.0, decodeBody(t, rec)["amount"], 0.001)

	rec = srv.do(t, http.MethodPut, "/api/transactions/"+id, token, gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/transactions/"+id, otherToken, gin.H{"amount": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeBody(t, rec)
	assert.InDelta(t, 5000.0, dash["totalIncome"], 0.001)
	assert.InDelta(t, 1300.0, dash["totalExpense"], 0.001)
	assert.InDelta(t, 3700.0, dash["balance"], 0.001)
	assert.Len(t, dash["summaryData"], 2)

	rec = srv.do(t, http.MethodDelete, "/api/transactions/"+id, otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/api/transactions/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/transactions/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisEndpoints(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	token, _ := srv.signup(t, "analysis@example.com")
	otherToken, _ := srv.signup(t, "nosy@example.com")

	rec := srv.do(t, http.MethodGet, "/api/analysis", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analysis.MessageNoTransactions, decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodGet, "/api/analysis/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody(t, rec)
	assert.EqualValues(t, 2, status["remaining"])
	assert.EqualValues(t, 2, status["maxPerWeek"])

	rec = srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{
		"description":   "Mercado semanal",
		"amount":        320,
		"type":          "EXPENSE",
		"category":      "MERCADO",
		"paymentMethod": "CREDITO",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/analysis", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody(t, rec)
	assert.EqualValues(t, 1, first["aiAnalysisRemaining"])
	firstID := first["analysis"].(map[string]any)["id"].(string)

	rec = srv.do(t, http.MethodGet, "/api/analysis", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody(t, rec)
	assert.EqualValues(t, 0, second["aiAnalysisRemaining"])
	assert.Equal(t, analysis.MessageLastFreeAnalysis, second["message"])

	rec = srv.do(t, http.MethodGet, "/api/analysis", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	denied := decodeBody(t, rec)
	assert.Equal(t, true, denied["limitReached"])
	assert.EqualValues(t, 7, denied["daysUntilReset"])

	rec = srv.do(t, http.MethodGet, "/api/analysis/last", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	last := decodeBody(t, rec)["analysis"].(map[string]any)
	assert.Equal(t, "Spending is concentrated on housing.", last["summary"])

	rec = srv.do(t, http.MethodGet, "/api/analysis/history?limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["analyses"], 1)

	rec = srv.do(t, http.MethodGet, "/api/analysis/history?limit=abc", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/analysis/"+firstID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/analysis/"+firstID, otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	foreign := rec.Body.String()
	rec = srv.do(t, http.MethodGet, "/api/analysis/does-not-exist", otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, foreign, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/analysis/last", otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisSubscriberIsUnlimited(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})
	token, userID := srv.signup(t, "vip@example.com")
	require.NoError(t, srv.db.Model(&models.User{}).Where("id = ?", userID).Update("has_subscription", true).Error)

	rec := srv.do(t, http.MethodPost, "/api/transactions", token, gin.H{
		"description":   "Cinema",
		"amount":        40,
		"type":          "EXPENSE",
		"category":      "LAZER",
		"paymentMethod": "DINHEIRO",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for i := 0; i < 3; i++ {
		rec = srv.do(t, http.MethodGet, "/api/analysis", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decodeBody(t, rec), "aiAnalysisRemaining")
	}

	rec = srv.do(t, http.MethodGet, "/api/analysis/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unlimited", decodeBody(t, rec)["remaining"])
}

func TestRateLimitOnAuthRoutes(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{General: 100, Auth: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "x@example.com", "password": "secret123"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("RateLimit-Remaining"))
	}
	rec := srv.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "x@example.com", "password": "secret123"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(decodeBody(t, rec)["error"].(string), "login"))

	// Health probes are never limited.
	for i := 0; i < 5; i++ {
		rec = srv.do(t, http.MethodGet, "/", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, config.RateLimitConfig{})

	big := `{"name":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rec := srv.do(t, http.MethodPost, "/api/auth/register", "", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
