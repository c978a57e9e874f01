package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/claims-tracker/constants"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		class  FailureClass
		status int
	}{
		{"nil", nil, FailureNone, http.StatusOK},
		{"extraction", NewExtractionError("Unsupported file type", nil), FailureExternal, http.StatusBadGateway},
		{"upstream", NewUpstreamError("all LLM attempts failed", errors.New("a: b")), FailureExternal, http.StatusBadGateway},
		{"scoring", NewScoringError("ML process timed out after 60s", nil), FailureExternal, http.StatusBadGateway},
		{"invalid input", NewAppError(CodeInvalid, "--dir is required", nil), FailureInput, http.StatusBadRequest},
		{"config", NewConfigError("Set GEMINI_API_KEY or OPENROUTER_API_KEY"), FailureInternal, http.StatusInternalServerError},
		{"recording", NewAppError(CodeRecording, "insert run", errors.New("locked")), FailureInternal, http.StatusInternalServerError},
		{"plain", errors.New("boom"), FailureInternal, http.StatusInternalServerError},
		{
			"wrapped in stage",
			&StageError{Step: constants.StepLLMExtraction, Err: fmt.Errorf("ctx: %w", NewUpstreamError("x", nil))},
			FailureExternal, http.StatusBadGateway,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, Classify(tc.err))
			assert.Equal(t, tc.status, HTTPStatus(tc.err))
		})
	}
}

func TestAppError_IsMatchesSentinelOnly(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewScoringError("ML process exited with code 1: boom", cause)

	assert.ErrorIs(t, err, ErrScoring)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrExtraction)
	assert.Equal(t, "SCORING_ERROR: ML process exited with code 1: boom: exit status 1", err.Error())
	assert.ErrorIs(t, NewAppError(CodeRecording, "x", nil), ErrDatabase)
}

func TestStepOf(t *testing.T) {
	err := fmt.Errorf("run: %w", &StageError{Step: constants.StepPredictFraud, Err: errors.New("x")})
	step, ok := StepOf(err)
	assert.True(t, ok)
	assert.Equal(t, constants.StepPredictFraud, step)
	assert.Equal(t, "run: stage predict_fraud: x", err.Error())

	_, ok = StepOf(errors.New("x"))
	assert.False(t, ok)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "x"))
	assert.EqualError(t, WrapError(errors.New("b"), "a"), "a: b")
}
