package inference

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrNotConfigured = errors.New("model endpoint is not configured")

// PredictFunc is the single Vertex AI call the models need.
type PredictFunc func(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error)

// FromPredictionClient adapts a Vertex AI prediction client. A nil client
// yields a nil func, which the models report as ErrNotConfigured.
func FromPredictionClient(client *aiplatform.PredictionClient) PredictFunc {
	if client == nil {
		return nil
	}
	return func(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error) {
		return client.Predict(ctx, req)
	}
}

// Endpoint identifies a deployed Vertex AI endpoint.
type Endpoint struct {
	ProjectID  string
	Location   string
	EndpointID string
}

func (e Endpoint) configured() bool {
	return e.ProjectID != "" && e.Location != "" && e.EndpointID != ""
}

func (e Endpoint) String() string {
	return fmt.Sprintf("projects/%s/locations/%s/endpoints/%s", e.ProjectID, e.Location, e.EndpointID)
}

func predict(ctx context.Context, fn PredictFunc, endpoint Endpoint, instance map[string]interface{}) ([]interface{}, error) {
	if fn == nil || !endpoint.configured() {
		return nil, ErrNotConfigured
	}

	value, err := structpb.NewValue(instance)
	if err != nil {
		return nil, errors.Wrap(err, "encode instance")
	}

	resp, err := fn(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  endpoint.String(),
		Instances: []*structpb.Value{value},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s", endpoint.EndpointID)
	}

	out := make([]interface{}, 0, len(resp.GetPredictions()))
	for _, p := range resp.GetPredictions() {
		out = append(out, p.AsInterface())
	}
	return out, nil
}
