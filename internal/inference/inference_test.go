package inference

import (
	"context"
	"encoding/json"
	"testing"

	"oncology-assist-backend/internal/oncology/agents"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

var testEndpoint = Endpoint{ProjectID: "proj", Location: "us-central1", EndpointID: "123"}

func ptr(f float64) *float64 { return &f }

func validRequest() PredictRequest {
	return PredictRequest{
		DiagnosisAge:              ptr(61),
		MutationCount:             ptr(42),
		NumberOfSamplesPerPatient: ptr(1),
		TMBNonsynonymous:          ptr(1.4),
		Sex:                       "Male",
	}
}

// recorder returns a PredictFunc that captures the request and answers with predictions.
func recorder(t *testing.T, captured **aiplatformpb.PredictRequest, predictions ...interface{}) PredictFunc {
	return func(_ context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error) {
		*captured = req
		resp := &aiplatformpb.PredictResponse{}
		for _, p := range predictions {
			v, err := structpb.NewValue(p)
			require.NoError(t, err)
			resp.Predictions = append(resp.Predictions, v)
		}
		return resp, nil
	}
}

func TestPredictRequestJSONAndInstance(t *testing.T) {
	var req PredictRequest
	body := `{"Diagnosis_Age":61,"Mutation_Count":42,"Number_of_Samples_Per_Patient":1,"TMB_nonsynonymous":1.4,"Sex":"Male"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NoError(t, req.Validate())

	assert.Equal(t, map[string]interface{}{
		"Diagnosis Age":                 61.0,
		"Mutation Count":                42.0,
		"Number of Samples Per Patient": 1.0,
		"TMB nonsynonymous":             1.4,
		"Sex":                           "Male",
	}, req.Instance())
}

func TestPredictRequestValidate(t *testing.T) {
	req := validRequest()
	req.MutationCount = nil
	req.Sex = " "
	err := req.Validate()
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "Mutation_Count")
	assert.Contains(t, err.Error(), "Sex")
}

func TestTabularPredictorSendsDisplayNames(t *testing.T) {
	var captured *aiplatformpb.PredictRequest
	p := NewTabularPredictor(recorder(t, &captured, map[string]interface{}{"classes": []interface{}{"low", "high"}, "scores": []interface{}{0.3, 0.7}}), testEndpoint)

	out, err := p.Predict(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "projects/proj/locations/us-central1/endpoints/123", captured.Endpoint)
	require.Len(t, captured.Instances, 1)
	fields := captured.Instances[0].GetStructValue().GetFields()
	assert.Contains(t, fields, "Diagnosis Age")
	assert.Contains(t, fields, "TMB nonsynonymous")
	assert.NotContains(t, fields, "Diagnosis_Age")
	assert.Equal(t, "Male", fields["Sex"].GetStringValue())

	assert.Equal(t, map[string]interface{}{"classes": []interface{}{"low", "high"}, "scores": []interface{}{0.3, 0.7}}, out)
}

func TestNotConfigured(t *testing.T) {
	_, err := NewTabularPredictor(nil, testEndpoint).Predict(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)

	var captured *aiplatformpb.PredictRequest
	_, err = NewImagingModel(recorder(t, &captured), Endpoint{ProjectID: "p"}).Infer(context.Background(), "gs://x", "q")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, captured)
}

func TestPredictError(t *testing.T) {
	fn := func(context.Context, *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error) {
		return nil, errors.New("unavailable")
	}
	_, err := NewTabularPredictor(fn, testEndpoint).Predict(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")

	var ae *agents.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, agents.StagePrediction, ae.Stage)
}

func TestInvalidRequestIsNotAnAnalysisError(t *testing.T) {
	_, err := NewTabularPredictor(nil, testEndpoint).Predict(context.Background(), PredictRequest{Sex: "Male"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	var ae *agents.AnalysisError
	assert.False(t, errors.As(err, &ae))
}

func TestImagingModelRendersText(t *testing.T) {
	var captured *aiplatformpb.PredictRequest
	m := NewImagingModel(recorder(t, &captured,
		map[string]interface{}{"content": "No suspicious calcifications."},
		"BI-RADS 1",
		map[string]interface{}{"score": 0.12},
	), testEndpoint)

	out, err := m.Infer(context.Background(), "gs://bucket/mammo.png", "analyze image")
	require.NoError(t, err)
	assert.Equal(t, "No suspicious calcifications.\nBI-RADS 1\n{\"score\":0.12}", out)

	fields := captured.Instances[0].GetStructValue().GetFields()
	assert.Equal(t, "gs://bucket/mammo.png", fields["image_uri"].GetStringValue())
	assert.Equal(t, "analyze image", fields["prompt"].GetStringValue())
}
