package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/AortaRisk/internal/features"
	"github.com/Skufu/AortaRisk/internal/inference"
	"github.com/Skufu/AortaRisk/internal/model"
	"github.com/Skufu/AortaRisk/internal/patient"
	"github.com/Skufu/AortaRisk/internal/report"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type fakePredictor struct {
	p   float64
	err error
}

func (f fakePredictor) Predict(patient.Input) (float64, error) { return f.p, f.err }

func testEngine(t *testing.T) *inference.Engine {
	t.Helper()
	a, err := model.Load(context.Background(), model.FileSource{Dir: filepath.Join("..", "model", "testdata")}, "scaler.json", "svm_model.json")
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	e, err := inference.New(a, features.Canonical)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func testRouter(t *testing.T, db HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Options{Engine: testEngine(t), DB: db, Logger: zerolog.Nop()})
}

func predictRouter(p report.Predictor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &handler{predictor: p, logger: zerolog.Nop()}
	router := gin.New()
	router.POST("/api/predict", h.predict)
	return router
}

const validBody = `{
	"age": 50,
	"heartRate": 70,
	"hemoglobin": 120,
	"hospitalizationDays": 10,
	"bun": 4.0,
	"coronaryDisease": "No",
	"renalDysfunction": "No"
}`

func post(router http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRouterHealthz(t *testing.T) {
	router := testRouter(t, fakeDB{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected X-Request-ID response header")
	}
}

func TestRouterReadyz(t *testing.T) {
	tests := []struct {
		name string
		db   HealthChecker
		code int
		body string
	}{
		{"db disabled", nil, http.StatusOK, `"db":"disabled"`},
		{"db ok", fakeDB{}, http.StatusOK, `"db":"ok"`},
		{"db down", fakeDB{err: errors.New("refused")}, http.StatusServiceUnavailable, "unhealthy: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(t, tt.db)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/readyz", nil)
			router.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Fatalf("expected %q in %s", tt.body, w.Body.String())
			}
		})
	}
}

func TestReadyzWithoutArtifacts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Options{Logger: zerolog.Nop()})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/readyz", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRequestIDPreserved(t *testing.T) {
	router := testRouter(t, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "my-custom-id" {
		t.Fatalf("expected my-custom-id, got %s", got)
	}
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestPredict(t *testing.T) {
	router := testRouter(t, nil)
	w := post(router, validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rep report.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rep.Assessment.Probability <= 0 || rep.Assessment.Probability >= 1 {
		t.Fatalf("probability out of range: %v", rep.Assessment.Probability)
	}
	if rep.Assessment.Band != "High" && rep.Assessment.Band != "Low" {
		t.Fatalf("unexpected band %q", rep.Assessment.Band)
	}
	if !strings.HasSuffix(rep.Assessment.Percentage, "%") {
		t.Fatalf("unexpected percentage %q", rep.Assessment.Percentage)
	}
	if len(rep.Advisories) != 3 || len(rep.Checklist) != 7 {
		t.Fatalf("unexpected recommendations: %d advisories, %d checklist", len(rep.Advisories), len(rep.Checklist))
	}

	again := post(router, validBody)
	if again.Body.String() != w.Body.String() {
		t.Fatal("identical submissions produced different responses")
	}
}

func TestPredictBandFromPredictor(t *testing.T) {
	tests := []struct {
		p    float64
		band string
	}{
		{0.207, `"band":"High"`},
		{0.2069999, `"band":"Low"`},
	}
	for _, tt := range tests {
		w := post(predictRouter(fakePredictor{p: tt.p}), validBody)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), tt.band) {
			t.Fatalf("p=%v: got %d %s", tt.p, w.Code, w.Body.String())
		}
	}
}

func TestPredictValidation(t *testing.T) {
	router := testRouter(t, nil)

	tests := []struct {
		name   string
		body   string
		code   int
		substr string
	}{
		{"age too low", strings.Replace(validBody, `"age": 50`, `"age": 19`, 1), http.StatusUnprocessableEntity, "age must be at least 20"},
		{"hr too high", strings.Replace(validBody, `"heartRate": 70`, `"heartRate": 181`, 1), http.StatusUnprocessableEntity, "heartRate must be at most 180"},
		{"missing bun", strings.Replace(validBody, `"bun": 4.0,`, ``, 1), http.StatusUnprocessableEntity, "bun is required"},
		{"bun step", strings.Replace(validBody, `"bun": 4.0`, `"bun": 4.05`, 1), http.StatusUnprocessableEntity, "multiple of 0.1"},
		{"bad choice", strings.Replace(validBody, `"coronaryDisease": "No"`, `"coronaryDisease": "maybe"`, 1), http.StatusUnprocessableEntity, "coronaryDisease must be one of"},
		{"malformed", `{"age":`, http.StatusBadRequest, "invalid_payload"},
		{"wrong type", strings.Replace(validBody, `"age": 50`, `"age": "fifty"`, 1), http.StatusBadRequest, "invalid_payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.code == http.StatusUnprocessableEntity && !strings.Contains(w.Body.String(), "validation_failed") {
				t.Fatalf("expected validation_failed, got %s", w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.substr) {
				t.Fatalf("expected %q in %s", tt.substr, w.Body.String())
			}
		})
	}
}

func TestPredictSchemaMismatchReported(t *testing.T) {
	mismatch := &features.MismatchError{
		Expected: []string{"age", "HR", "HGB", "hospitalization", "BUN", "coronary heart disease", "renal insufficiency"},
		Actual:   features.Canonical.Names(),
		Reason:   "feature 6 differs",
	}
	w := post(predictRouter(fakePredictor{err: mismatch}), validBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body struct {
		Error    string   `json:"error"`
		Expected []string `json:"expected"`
		Actual   []string `json:"actual"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "inference_failed" || body.Expected[6] != "renal insufficiency" || body.Actual[6] != "renal dysfunction" {
		t.Fatalf("diagnostics missing from response: %+v", body)
	}
}

func TestPredictWithoutEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Options{Logger: zerolog.Nop()})
	if w := post(router, validBody); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestFormAndSchema(t *testing.T) {
	router := testRouter(t, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/form", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"hospitalizationDays"`) {
		t.Fatalf("unexpected form response %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/schema", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"renal dysfunction"`) || !strings.Contains(w.Body.String(), `"verified":true`) {
		t.Fatalf("unexpected schema response %s", w.Body.String())
	}
}

func TestIndexServed(t *testing.T) {
	router := testRouter(t, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Parameter Selection Panel") {
		t.Fatalf("unexpected index response %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/static/app.js", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected app.js, got %d", w.Code)
	}
}
