package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Skufu/AortaRisk/internal/features"
	"github.com/Skufu/AortaRisk/internal/inference"
	"github.com/Skufu/AortaRisk/internal/patient"
	"github.com/Skufu/AortaRisk/internal/report"
	"github.com/Skufu/AortaRisk/internal/risk"
)

type handler struct {
	engine    *inference.Engine
	predictor report.Predictor
	logger    zerolog.Logger
}

func newHandler(engine *inference.Engine, logger zerolog.Logger) *handler {
	h := &handler{engine: engine, logger: logger}
	if engine != nil {
		h.predictor = engine
	}
	return h
}

// PredictRequest is the form submission. Yes/No fields mirror the form's
// select controls.
type PredictRequest struct {
	Age                 int     `json:"age" binding:"required,min=20,max=100"`
	HeartRate           int     `json:"heartRate" binding:"required,min=30,max=180"`
	Hemoglobin          int     `json:"hemoglobin" binding:"required,min=50,max=200"`
	HospitalizationDays int     `json:"hospitalizationDays" binding:"required,min=1,max=100"`
	BUN                 float64 `json:"bun" binding:"required,min=1,max=50"`
	CoronaryDisease     string  `json:"coronaryDisease" binding:"required,oneof=No Yes"`
	RenalDysfunction    string  `json:"renalDysfunction" binding:"required,oneof=No Yes"`
}

// Input converts the request and applies the domain checks binding tags
// cannot express.
func (r PredictRequest) Input() (patient.Input, error) {
	coronary, err := patient.ParseChoice(r.CoronaryDisease)
	if err != nil {
		return patient.Input{}, &patient.ValidationError{Problems: []string{"coronaryDisease " + err.Error()}}
	}
	renal, err := patient.ParseChoice(r.RenalDysfunction)
	if err != nil {
		return patient.Input{}, &patient.ValidationError{Problems: []string{"renalDysfunction " + err.Error()}}
	}
	in := patient.Input{
		Age:                 r.Age,
		HeartRate:           r.HeartRate,
		Hemoglobin:          r.Hemoglobin,
		HospitalizationDays: r.HospitalizationDays,
		BUN:                 r.BUN,
		CoronaryDisease:     coronary,
		RenalDysfunction:    renal,
	}
	if err := in.Validate(); err != nil {
		return patient.Input{}, err
	}
	return in, nil
}

var requestFields = map[string]string{
	"Age":                 "age",
	"HeartRate":           "heartRate",
	"Hemoglobin":          "hemoglobin",
	"HospitalizationDays": "hospitalizationDays",
	"BUN":                 "bun",
	"CoronaryDisease":     "coronaryDisease",
	"RenalDysfunction":    "renalDysfunction",
}

func describeFieldErrors(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		name := requestFields[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			details = append(details, name+" is required")
		case "min":
			details = append(details, fmt.Sprintf("%s must be at least %s", name, fe.Param()))
		case "max":
			details = append(details, fmt.Sprintf("%s must be at most %s", name, fe.Param()))
		case "oneof":
			details = append(details, fmt.Sprintf("%s must be one of: %s", name, fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return details
}

func (h *handler) predict(c *gin.Context) {
	if h.predictor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "artifacts_not_loaded"})
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation_failed",
				"details": describeFieldErrors(verrs),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "details": err.Error()})
		return
	}

	in, err := req.Input()
	if err != nil {
		var verr *patient.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": verr.Problems})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "details": err.Error()})
		return
	}

	rep, err := report.Build(h.predictor, in)
	if err != nil {
		_ = c.Error(err)
		body := gin.H{"error": "inference_failed", "details": err.Error()}
		var mismatch *features.MismatchError
		if errors.As(err, &mismatch) {
			body["expected"] = mismatch.Expected
			body["actual"] = mismatch.Actual
		}
		h.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("inference failed")
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	h.logger.Debug().
		Str("request_id", c.GetString("request_id")).
		Float64("probability", rep.Assessment.Probability).
		Str("band", string(rep.Assessment.Band)).
		Msg("prediction")
	c.JSON(http.StatusOK, rep)
}

func (h *handler) form(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields":    patient.Fields,
		"threshold": risk.Threshold,
		"model":     report.Model,
	})
}

func (h *handler) schema(c *gin.Context) {
	body := gin.H{"columns": features.Canonical.Columns()}
	if h.engine != nil {
		scalerName, modelName := h.engine.ArtifactNames()
		body["columns"] = h.engine.Schema().Columns()
		body["scaler"] = h.engine.ScalerFeatureNames()
		body["verified"] = true
		body["artifacts"] = gin.H{"scaler": scalerName, "model": modelName}
	}
	c.JSON(http.StatusOK, body)
}
