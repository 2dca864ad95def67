package inference

import (
	"context"
	"strings"

	"oncology-assist-backend/internal/oncology/agents"

	"github.com/pkg/errors"
)

var ErrInvalidRequest = errors.New("invalid prediction request")

// PredictRequest is the body of POST /predict. The JSON names are what
// clients send, Instance renders the names the model was trained with.
type PredictRequest struct {
	DiagnosisAge              *float64 `json:"Diagnosis_Age"`
	MutationCount             *float64 `json:"Mutation_Count"`
	NumberOfSamplesPerPatient *float64 `json:"Number_of_Samples_Per_Patient"`
	TMBNonsynonymous          *float64 `json:"TMB_nonsynonymous"`
	Sex                       string   `json:"Sex"`
}

func (r PredictRequest) Validate() error {
	var missing []string
	if r.DiagnosisAge == nil {
		missing = append(missing, "Diagnosis_Age")
	}
	if r.MutationCount == nil {
		missing = append(missing, "Mutation_Count")
	}
	if r.NumberOfSamplesPerPatient == nil {
		missing = append(missing, "Number_of_Samples_Per_Patient")
	}
	if r.TMBNonsynonymous == nil {
		missing = append(missing, "TMB_nonsynonymous")
	}
	if strings.TrimSpace(r.Sex) == "" {
		missing = append(missing, "Sex")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidRequest, "missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Instance maps the request onto the model's feature names.
func (r PredictRequest) Instance() map[string]interface{} {
	return map[string]interface{}{
		"Diagnosis Age":                 deref(r.DiagnosisAge),
		"Mutation Count":                deref(r.MutationCount),
		"Number of Samples Per Patient": deref(r.NumberOfSamplesPerPatient),
		"TMB nonsynonymous":             deref(r.TMBNonsynonymous),
		"Sex":                           r.Sex,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// TabularPredictor serves the risk model behind POST /predict.
type TabularPredictor struct {
	predict  PredictFunc
	endpoint Endpoint
}

func NewTabularPredictor(fn PredictFunc, endpoint Endpoint) *TabularPredictor {
	return &TabularPredictor{predict: fn, endpoint: endpoint}
}

// Predict returns the model output for one request: the single prediction
// when the endpoint returns one, else the full list.
func (p *TabularPredictor) Predict(ctx context.Context, req PredictRequest) (interface{}, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	predictions, err := predict(ctx, p.predict, p.endpoint, req.Instance())
	if err != nil {
		return nil, agents.NewAnalysisError(agents.StagePrediction, err)
	}
	if len(predictions) == 1 {
		return predictions[0], nil
	}
	return predictions, nil
}
