package inference

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ImagingModel calls the imaging endpoint and renders its answer as text.
type ImagingModel struct {
	predict  PredictFunc
	endpoint Endpoint
}

func NewImagingModel(fn PredictFunc, endpoint Endpoint) *ImagingModel {
	return &ImagingModel{predict: fn, endpoint: endpoint}
}

func (m *ImagingModel) Infer(ctx context.Context, imageRef, query string) (string, error) {
	predictions, err := predict(ctx, m.predict, m.endpoint, map[string]interface{}{
		"image_uri": imageRef,
		"prompt":    query,
	})
	if err != nil {
		return "", err
	}
	if len(predictions) == 0 {
		return "", errors.New("imaging model returned no predictions")
	}

	lines := make([]string, 0, len(predictions))
	for _, p := range predictions {
		lines = append(lines, renderPrediction(p))
	}
	return strings.Join(lines, "\n"), nil
}

// renderPrediction prefers a text field when the model returns an object.
func renderPrediction(p interface{}) string {
	switch v := p.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"content", "text", "summary", "prediction"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}
