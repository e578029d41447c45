package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetTypeAndCode(t *testing.T) {
	cause := errors.New("connection reset")
	cases := []struct {
		err  *AppError
		code string
		is   func(error) bool
	}{
		{NewValidationError("prompt is required", nil), "VALIDATION_ERROR", IsValidationError},
		{NewNotFoundError("character not found", nil), "NOT_FOUND", IsNotFoundError},
		{NewParseError("bad json", cause), "GENERATION_PARSE_FAILED", IsParseError},
		{NewTransportError("backend unreachable", cause), "GENERATION_FAILED", IsTransportError},
		{NewPipelineStepError("storyboard", cause), "PIPELINE_STEP_FAILED", IsPipelineStepError},
		{NewStaleResultError("view changed", nil), "STALE_RESULT", IsStaleResultError},
		{NewConfirmationRequiredError("discard?"), "CONFIRMATION_REQUIRED", IsConfirmationRequiredError},
		{NewProcessingError("zip failed", cause), "PROCESSING_ERROR", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code, tc.err.Message)
		if tc.is != nil {
			assert.True(t, tc.is(fmt.Errorf("wrapped: %w", tc.err)), tc.err.Message)
			assert.False(t, tc.is(cause))
		}
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("EOF")
	err := NewParseError("outline response", cause)
	assert.Equal(t, "outline response: EOF", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "discard?", NewConfirmationRequiredError("discard?").Error())
}

func TestFailedStep(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewPipelineStepError("voice", nil))
	assert.Equal(t, "voice", FailedStep(err))
	assert.Equal(t, "", FailedStep(errors.New("plain")))
}

func TestTypeOf(t *testing.T) {
	typ, ok := TypeOf(NewStaleResultError("late", nil))
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeStaleResult, typ)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored", ErrorTypeError))

	wrapped := WrapError(errors.New("disk full"), "save export", ErrorTypeError)
	assert.Equal(t, "save export: disk full", wrapped.Error())

	step := NewPipelineStepError("plot", nil)
	rewrapped := WrapError(step, "story pipeline", ErrorTypeValidation)
	assert.True(t, IsPipelineStepError(rewrapped))
	assert.Equal(t, "plot", FailedStep(rewrapped))
	assert.Contains(t, rewrapped.Error(), `story pipeline: pipeline step "plot" failed`)
}
