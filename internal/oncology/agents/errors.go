package agents

import (
	"github.com/pkg/errors"
)

const (
	StageGeneration = "generation"
	StageWebSearch  = "web_search"
	StageKnowledge  = "knowledge"
	StageImaging    = "imaging"
	StageExtraction = "extraction"
	StagePrediction = "prediction"
)

// AnalysisError reports a failed collaborator call during analysis. It is
// returned as-is to the HTTP layer, which renders Err as the detail.
type AnalysisError struct {
	Stage string
	Err   error
}

func (e *AnalysisError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *AnalysisError) Cause() error { return e.Err }

// NewAnalysisError wraps err for stage. An error that already carries an
// AnalysisError keeps its original stage.
func NewAnalysisError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *AnalysisError
	if errors.As(err, &existing) {
		return err
	}
	return &AnalysisError{Stage: stage, Err: err}
}
