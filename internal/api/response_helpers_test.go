package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/services"
)

func TestFromErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", apperrors.NewValidationError("Please select a valid scene.", nil), http.StatusBadRequest, ErrorValidation, "Please select a valid scene."},
		{"not found", apperrors.NewNotFoundError("character not found", nil), http.StatusNotFound, ErrorNotFound, "character not found"},
		{"transport", apperrors.NewTransportError("dial tcp: refused", errors.New("refused")), http.StatusBadGateway, ErrorGenerationFailed, services.TransportFailureMessage},
		{"stale", apperrors.NewStaleResultError(services.StaleResultMessage, nil), http.StatusConflict, ErrorStaleResult, services.StaleResultMessage},
		{"confirmation", apperrors.NewConfirmationRequiredError("sure?"), http.StatusConflict, ErrorConfirmationRequired, "sure?"},
		{"pipeline", apperrors.NewPipelineStepError("panel_image", apperrors.NewTransportError("x", nil)), http.StatusBadGateway, ErrorPipelineStep, services.TransportFailureMessage},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ErrorInternalError, "An unexpected error occurred"},
	}

	rh := NewResponseHelper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			rh.FromError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w, nil)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
		})
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("request failed: key=AIza123"))
	assert.Equal(t, "Please select a valid scene.", sanitizeErrorMessage("Please select a valid scene."))
}
