package apperrors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
)

func TestAppError_ErrorString(t *testing.T) {
	err := apperrors.New(apperrors.ErrCodeNotFound, "plugin not found")
	assert.Equal(t, "NOT_FOUND: plugin not found", err.Error())
}

func TestAppError_ErrorStringWithDetails(t *testing.T) {
	err := apperrors.NewWithDetails(apperrors.ErrCodeValidation, "bad input", "field 'name' is required")
	assert.Equal(t, "VALIDATION_ERROR: bad input - field 'name' is required", err.Error())
}

func TestWrap_CarriesUnderlyingErrorAsDetails(t *testing.T) {
	underlying := fmt.Errorf("connection refused")
	err := apperrors.Wrap(apperrors.ErrCodeInternal, "failed to connect", underlying)
	assert.Equal(t, "connection refused", err.Details)
}

func TestWrap_NilErrorYieldsEmptyDetails(t *testing.T) {
	err := apperrors.Wrap(apperrors.ErrCodeInternal, "no error here", nil)
	assert.Empty(t, err.Details)
}

func TestStatusCodeByErrorCode(t *testing.T) {
	cases := []struct {
		code     string
		expected int
	}{
		{apperrors.ErrCodeBadRequest, http.StatusBadRequest},
		{apperrors.ErrCodeValidation, http.StatusBadRequest},
		{apperrors.ErrCodeNotFound, http.StatusNotFound},
		{apperrors.ErrCodeContext, http.StatusConflict},
		{apperrors.ErrCodeCapability, http.StatusConflict},
		{apperrors.ErrCodeRegistration, http.StatusInternalServerError},
		{apperrors.ErrCodeDependency, http.StatusInternalServerError},
		{apperrors.ErrCodeInitialization, http.StatusInternalServerError},
		{apperrors.ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.code, func(t *testing.T) {
			err := apperrors.New(c.code, "message")
			assert.Equal(t, c.expected, err.StatusCode)
		})
	}
}

func TestToResponse(t *testing.T) {
	err := apperrors.NewWithDetails(apperrors.ErrCodeValidation, "bad input", "details here")
	resp := err.ToResponse()

	assert.Equal(t, apperrors.ErrCodeValidation, resp.Error)
	assert.Equal(t, "bad input", resp.Message)
	assert.Equal(t, apperrors.ErrCodeValidation, resp.Code)
	assert.Equal(t, "details here", resp.Details)
}

func TestDependencyError_ListsMissingDependencies(t *testing.T) {
	err := apperrors.DependencyError("notes-plugin", []string{"auth-plugin", "storage-plugin"})
	assert.Contains(t, err.Details, "auth-plugin")
	assert.Contains(t, err.Details, "storage-plugin")
	assert.Equal(t, apperrors.ErrCodeDependency, err.Code)
}

func TestContextError_NamesPluginAndAccessor(t *testing.T) {
	err := apperrors.ContextError("notes-plugin", "getServiceContext")
	assert.Contains(t, err.Message, "notes-plugin")
	assert.Contains(t, err.Message, "getServiceContext")
}

func TestCapabilityError_NamesKindAndName(t *testing.T) {
	err := apperrors.CapabilityError("tool", "notes_list", fmt.Errorf("timeout"))
	assert.Contains(t, err.Message, "tool")
	assert.Contains(t, err.Message, "notes_list")
	assert.Equal(t, "timeout", err.Details)
}
